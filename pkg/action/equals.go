package action

import (
	"fmt"
	"math"
	"reflect"
)

// DeepEquals implements spec.md §4.E's deepEquals / §8 property 9:
// reflexive, symmetric, NaN equals NaN, arrays compared element-wise,
// otherwise structural comparison.
//
// JS's deepEquals distinguishes RegExp (compared by source+flags) and
// objects with a custom valueOf/toString. Go has no universal analogue
// of either; the closest idiomatic realization is fmt.Stringer — values
// that opt into a custom string form are compared by that form before
// falling back to structural equality, which is the same "trust the
// type's own notion of value" rule the source expresses, applied through
// Go's own extension point instead of a JS-specific one. See DESIGN.md.
func DeepEquals(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if fa, ok := numericValue(a); ok {
		if fb, ok2 := numericValue(b); ok2 {
			if math.IsNaN(fa) && math.IsNaN(fb) {
				return true
			}
			return fa == fb
		}
	}

	if sa, ok := a.(fmt.Stringer); ok {
		if sb, ok2 := b.(fmt.Stringer); ok2 {
			return sa.String() == sb.String()
		}
	}

	switch av := a.(type) {
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEquals(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, present := bv[k]
			if !present || !DeepEquals(v, bvv) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
