package codec

import (
	"fmt"

	"github.com/OranPie/imp/errz"
	"github.com/OranPie/imp/object"
)

// Value variant tags, in the order §4.6 lists them.
const (
	tagNull     = 0
	tagBool     = 1
	tagNum      = 2
	tagText     = 3
	tagObject   = 4
	tagFnHandle = 5
)

func writeValue(w *writer, v object.Value) error {
	switch val := v.(type) {
	case object.Null:
		w.u8(tagNull)
	case object.Bool:
		w.u8(tagBool)
		w.bool(bool(val))
	case object.Num:
		w.u8(tagNum)
		w.f64(float64(val))
	case object.Text:
		w.u8(tagText)
		w.str(string(val))
	case *object.Object:
		if val.IsForeignFunction() {
			return fmt.Errorf("codec: cannot encode a foreign function value")
		}
		w.u8(tagObject)
		keys := val.Keys()
		w.u32(uint32(len(keys)))
		for _, k := range keys {
			w.str(k)
			child, _ := val.Get(k)
			if err := writeValue(w, child); err != nil {
				return err
			}
		}
	case object.FnHandle:
		w.u8(tagFnHandle)
		w.u32(val.ModuleID)
		w.u32(val.FunctionID)
	default:
		return fmt.Errorf("codec: cannot encode value of type %T", v)
	}
	return nil
}

func readValue(r *reader) (object.Value, error) {
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNull:
		return object.NullValue, nil
	case tagBool:
		b, err := r.bool()
		if err != nil {
			return nil, err
		}
		return object.Bool(b), nil
	case tagNum:
		n, err := r.f64()
		if err != nil {
			return nil, err
		}
		return object.Num(n), nil
	case tagText:
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		return object.Text(s), nil
	case tagObject:
		count, err := r.u32()
		if err != nil {
			return nil, err
		}
		obj := object.NewObject()
		for i := uint32(0); i < count; i++ {
			key, err := r.str()
			if err != nil {
				return nil, err
			}
			child, err := readValue(r)
			if err != nil {
				return nil, err
			}
			obj.Set(key, child)
		}
		return obj, nil
	case tagFnHandle:
		moduleID, err := r.u32()
		if err != nil {
			return nil, err
		}
		functionID, err := r.u32()
		if err != nil {
			return nil, err
		}
		return object.FnHandle{ModuleID: moduleID, FunctionID: functionID}, nil
	default:
		return nil, errz.UnknownTag(r.off-1, tag)
	}
}
