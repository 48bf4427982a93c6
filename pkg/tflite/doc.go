// Package tflite loads TensorFlow Lite models and runs them through the
// engine's C API without exposing raw native handles.
//
// A Model may back many Interpreters. Each Interpreter is used by one
// goroutine at a time:
//
//	model, err := tflite.LoadModel("mobilenet.tflite")
//	if err != nil {
//		return err
//	}
//	defer model.Close()
//
//	in, err := tflite.NewInterpreter(model, &tflite.InterpreterOptions{NumThreads: 2})
//	if err != nil {
//		return err
//	}
//	defer in.Close()
//
//	if err := in.AllocateTensors(); err != nil {
//		return err
//	}
//	input, _ := in.Input(0)
//	if err := tflite.SetData(input, pixels); err != nil {
//		return err
//	}
//	if err := in.Invoke(); err != nil {
//		return err
//	}
//	output, _ := in.Output(0)
//	scores := tflite.Data[float32](output)
//
// Tensor views are invalidated by AllocateTensors, ResizeInput, Invoke and
// Close. Reading data through an invalidated view panics; copy what must
// outlive the call with CopyBytes or slices.Clone.
//
// The package links against libtensorflowlite_c only when built with the
// tflite build tag. Without it loading a model fails with an error matching
// ErrUnavailable.
package tflite
