package object

// Stable error codes the VM itself raises when it converts a user-reachable
// failure condition into a throw, per the error-handling policy: the VM
// never panics on these, it throws with one of these codes instead.
const (
	CodeTypeError         = "type_error"
	CodeDivByZero         = "div_by_zero"
	CodeMissingKey        = "missing_key"
	CodeBadRetshape       = "bad_retshape"
	CodeInvokeTargetNotFn = "invoke_target_not_fn"
)

// NewErrorObject builds the {code, msg} Object a Throw instruction
// constructs before it is either caught by a handler or surfaced as a
// VmError.
func NewErrorObject(code, msg string) *Object {
	o := NewObject()
	o.Set("code", Text(code))
	o.Set("msg", Text(msg))
	return o
}

// ErrorCode extracts the "code" field of an error object. It returns ""
// if v is not an Object, or has no Text "code" field.
func ErrorCode(v Value) string {
	obj, ok := v.(*Object)
	if !ok {
		return ""
	}
	code, ok := obj.Get("code")
	if !ok {
		return ""
	}
	text, ok := code.(Text)
	if !ok {
		return ""
	}
	return string(text)
}

// ErrorMessage extracts the "msg" field of an error object, mirroring
// ErrorCode.
func ErrorMessage(v Value) string {
	obj, ok := v.(*Object)
	if !ok {
		return ""
	}
	msg, ok := obj.Get("msg")
	if !ok {
		return ""
	}
	text, ok := msg.(Text)
	if !ok {
		return ""
	}
	return string(text)
}
