// SPDX-License-Identifier: MPL-2.0

package params

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Evaluate evaluates src as a restricted expression against the scope.
// Plain references (`a`, `a.b`, `a[0]`, `a["k"]`) return the bound Go value
// untouched; other expressions go through the HCL evaluator, where whole
// numbers come back as int and mappings as *Map.
func Evaluate(src string, s *Scope) (any, error) {
	v, err := evaluate(src, s)
	return v, withInput(err, src)
}

func evaluate(src string, s *Scope) (any, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, malformed("empty expression")
	}
	expr, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, malformed("%s", diagSummary(diags))
	}

	if st, ok := expr.(*hclsyntax.ScopeTraversalExpr); ok {
		return walkTraversal(st.Traversal, s)
	}

	ctx := &hcl.EvalContext{Variables: make(map[string]cty.Value)}
	for _, tr := range expr.Variables() {
		name := tr.RootName()
		if _, done := ctx.Variables[name]; done {
			continue
		}
		v, ok := lookupRoot(name, s)
		if !ok {
			return nil, &MissingNameError{Name: name}
		}
		cv, err := toCty(v)
		if err != nil {
			return nil, malformed("variable %s: %v", name, err)
		}
		ctx.Variables[name] = cv
	}

	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, malformed("%s", diagSummary(diags))
	}
	return fromCty(val)
}

func walkTraversal(tr hcl.Traversal, s *Scope) (any, error) {
	root := tr.RootName()
	v, ok := lookupRoot(root, s)
	if !ok {
		return nil, &MissingNameError{Name: root}
	}
	path := root
	for _, step := range tr[1:] {
		switch t := step.(type) {
		case hcl.TraverseAttr:
			path += "." + t.Name
			v, ok = attribute(v, t.Name)
		case hcl.TraverseIndex:
			key, err := indexKey(t.Key)
			if err != nil {
				return nil, err
			}
			path += "[" + key + "]"
			v, ok = index(v, key)
		default:
			return nil, malformed("unsupported traversal in %s", path)
		}
		if !ok {
			return nil, &MissingNameError{Name: path}
		}
	}
	return v, nil
}

func indexKey(k cty.Value) (string, error) {
	if k.IsNull() || !k.IsKnown() {
		return "", malformed("null index key")
	}
	switch k.Type() {
	case cty.String:
		return k.AsString(), nil
	case cty.Number:
		bf := k.AsBigFloat()
		i, acc := bf.Int64()
		if acc != big.Exact {
			return "", malformed("index %s is not an integer", bf.String())
		}
		return strconv.FormatInt(i, 10), nil
	}
	return "", malformed("unsupported index type %s", k.Type().FriendlyName())
}

func diagSummary(diags hcl.Diagnostics) string {
	msgs := make([]string, 0, len(diags))
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += ": " + d.Detail
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

func toCty(v any) (cty.Value, error) {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case bool:
		return cty.BoolVal(t), nil
	case int:
		return cty.NumberIntVal(int64(t)), nil
	case int64:
		return cty.NumberIntVal(t), nil
	case float64:
		if math.IsNaN(t) {
			return cty.NilVal, errors.New("NaN is not a number")
		}
		return cty.NumberFloatVal(t), nil
	case string:
		return cty.StringVal(t), nil
	case []any:
		if len(t) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(t))
		for i, e := range t {
			cv, err := toCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = cv
		}
		return cty.TupleVal(elems), nil
	case *Map:
		if t.Len() == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, t.Len())
		for k, e := range t.All() {
			cv, err := toCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	case Attributer:
		return toCty(t.Attributes())
	}
	return cty.NilVal, fmt.Errorf("unsupported value of type %T", v)
}

func fromCty(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, e := it.Element()
			ge, err := fromCty(e)
			if err != nil {
				return nil, err
			}
			out = append(out, ge)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := NewMap()
		for it := v.ElementIterator(); it.Next(); {
			k, e := it.Element()
			ge, err := fromCty(e)
			if err != nil {
				return nil, err
			}
			out.Set(k.AsString(), ge)
		}
		return out, nil
	}
	return nil, malformed("unsupported result type %s", ty.FriendlyName())
}
