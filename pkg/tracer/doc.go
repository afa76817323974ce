// Package tracer bridges guest script execution events to a host observer.
//
// A Controller installs a single hook on an instrumentation.Installer. Every
// event the runtime fires passes through three stages:
//
//   - Filter drops frames with no source path and frames inside the
//     runtime's own library tree.
//   - Formatter renders the event as a short Record ("CALL: mod.fn",
//     "RETURN: mod.fn -> 42", "EXCEPTION: ValueError: bad").
//   - Bridge hands the record to the observer currently held by a Binding,
//     or prints it to stdout when nothing is bound.
//
// No stage lets a failure escape into the traced code: unreadable
// frames are skipped, unrepresentable values are replaced by a placeholder
// and observer panics are recovered.
//
//	rt := instrumentation.NewRuntime()
//	ctl := tracer.NewController(rt)
//	ctl.Bridge().Binding().Bind(tracer.ObserverFunc(func(cat, msg string) {
//		fmt.Println(cat, msg)
//	}))
//	if err := ctl.Enable(); err != nil {
//		return err
//	}
//	defer ctl.Disable()
package tracer
