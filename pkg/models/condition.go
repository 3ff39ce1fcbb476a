// Package models provides conditional expression evaluation for workflow edges.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// EvaluateCondition interprets a minimal boolean expression against an
// execution context. Supported forms:
//
//   - empty string: true
//   - a boolean literal accepted by strconv.ParseBool
//   - "<left> <op> <right>" where op is ==, !=, <, <=, > or >= and each
//     side is a literal or a context reference (variables.key, input.key,
//     outputs.nodeID.key)
//
// Anything else is an evaluation error.
func EvaluateCondition(expression string, ctx *ExecutionContext) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return true, nil
	}

	if result, err := strconv.ParseBool(expression); err == nil {
		return result, nil
	}

	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		left, right, found := strings.Cut(expression, op)
		if !found {
			continue
		}

		leftValue := resolveOperand(strings.TrimSpace(left), ctx)
		rightValue := resolveOperand(strings.TrimSpace(right), ctx)

		return compare(leftValue, rightValue, op)
	}

	return false, fmt.Errorf("cannot evaluate condition %q", expression)
}

// resolveOperand turns an operand into a value: context references resolve
// against the execution context, everything else is a literal.
func resolveOperand(operand string, ctx *ExecutionContext) any {
	if ctx != nil {
		if key, ok := strings.CutPrefix(operand, "variables."); ok {
			return ctx.Variables[key]
		}

		if key, ok := strings.CutPrefix(operand, "input."); ok {
			return ctx.InputData[key]
		}

		if ref, ok := strings.CutPrefix(operand, "outputs."); ok {
			nodeID, key, found := strings.Cut(ref, ".")
			if !found {
				return ctx.NodeOutputs[ref]
			}

			if output, isMap := ctx.NodeOutputs[nodeID].(map[string]any); isMap {
				return output[key]
			}

			return nil
		}
	}

	return strings.Trim(operand, `"'`)
}

func compare(left, right any, op string) (bool, error) {
	leftNum, leftOK := toFloat(left)
	rightNum, rightOK := toFloat(right)

	if leftOK && rightOK {
		switch op {
		case "==":
			return leftNum == rightNum, nil
		case "!=":
			return leftNum != rightNum, nil
		case "<":
			return leftNum < rightNum, nil
		case "<=":
			return leftNum <= rightNum, nil
		case ">":
			return leftNum > rightNum, nil
		case ">=":
			return leftNum >= rightNum, nil
		}
	}

	leftStr := fmt.Sprintf("%v", left)
	rightStr := fmt.Sprintf("%v", right)

	switch op {
	case "==":
		return leftStr == rightStr, nil
	case "!=":
		return leftStr != rightStr, nil
	case "<", "<=", ">", ">=":
		return false, fmt.Errorf("cannot order non-numeric operands %q and %q", leftStr, rightStr)
	}

	return false, fmt.Errorf("unsupported operator %q", op)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		num, err := strconv.ParseFloat(v, 64)

		return num, err == nil
	default:
		return 0, false
	}
}
