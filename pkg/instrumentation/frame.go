package instrumentation

// ModuleLevel is the function name reported for top-level module code.
const ModuleLevel = "<module>"

// FrameInfo describes the guest stack frame an event was fired from.
// The hosting interpreter supplies implementations; the tracing pipeline
// depends on nothing else about a frame.
type FrameInfo interface {
	// SourcePath is the script file the frame executes, or "" if unknown.
	SourcePath() string
	// Line is the current line number within SourcePath.
	Line() int
	// ModuleName is the declaring module, or "" if the runtime has none.
	ModuleName() string
	// FunctionName is the executing function, "" or ModuleLevel for top-level code.
	FunctionName() string
}

// Frame is a plain value implementation of FrameInfo.
type Frame struct {
	Path     string
	LineNo   int
	Module   string
	Function string
}

func (f Frame) SourcePath() string   { return f.Path }
func (f Frame) Line() int            { return f.LineNo }
func (f Frame) ModuleName() string   { return f.Module }
func (f Frame) FunctionName() string { return f.Function }

// At returns a copy of the frame positioned at line.
func (f Frame) At(line int) Frame {
	f.LineNo = line
	return f
}

// IsModuleLevel reports whether the frame executes top-level module code.
func IsModuleLevel(f FrameInfo) bool {
	fn := f.FunctionName()
	return fn == "" || fn == ModuleLevel
}
