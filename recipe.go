package calcgrid

import (
	"fmt"
	"reflect"
)

var errorInterface = reflect.TypeOf((*error)(nil)).Elem()

// validateRecipe checks that a bound recipe is a function whose shape matches
// a step with argc declared dependencies: exactly argc parameters, not
// variadic, and either one result or a (value, error) pair.
func validateRecipe(fn any, argc int) error {
	if fn == nil {
		return fmt.Errorf("bound value is nil")
	}
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return fmt.Errorf("bound value is a %s, not a function", ft.Kind())
	}
	if ft.IsVariadic() {
		return fmt.Errorf("variadic functions are not supported, declare one dependency per parameter")
	}
	if ft.NumIn() != argc {
		return fmt.Errorf("arity mismatch: function takes %d arguments but the step declares %d dependencies", ft.NumIn(), argc)
	}
	switch ft.NumOut() {
	case 1:
		if ft.Out(0) == errorInterface {
			return fmt.Errorf("function must return a value, not only an error")
		}
	case 2:
		if ft.Out(1) != errorInterface {
			return fmt.Errorf("second result must be an error, got %s", ft.Out(1))
		}
	default:
		return fmt.Errorf("function must return a value or a (value, error) pair, got %d results", ft.NumOut())
	}
	return nil
}

// invokeRecipe calls a recipe with the given argument values in declared
// order. A panic inside the recipe is captured and returned as an error.
func invokeRecipe(fn any, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("recipe panicked: %v", r)
		}
	}()

	fv := reflect.ValueOf(fn)
	ft := fv.Type()

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		v, convErr := coerceArgument(arg, ft.In(i))
		if convErr != nil {
			return nil, fmt.Errorf("argument %d: %w", i, convErr)
		}
		in[i] = v
	}

	out := fv.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// coerceArgument adapts a context value to a recipe parameter type. Exact and
// assignable types pass through; numeric values convert between numeric kinds
// so that e.g. an untyped-int context entry feeds a float64 parameter.
func coerceArgument(arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return reflect.Zero(want), nil
		default:
			return reflect.Value{}, fmt.Errorf("cannot pass nil as %s", want)
		}
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if isNumericKind(v.Kind()) && isNumericKind(want.Kind()) && v.Type().ConvertibleTo(want) {
		return v.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("value of type %s is not assignable to %s", v.Type(), want)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
