package engine

import (
	"strconv"
	"strings"

	"github.com/bkoehler/netverdict/internal/logging"
	"github.com/bkoehler/netverdict/internal/rules"
)

// WarnFunc receives non-fatal diagnostic warnings from an analysis, such
// as an unrecognized operator in a trigger. The default sink is the
// logging package.
type WarnFunc func(msg string, fields ...logging.LogField)

// conditionEvaluator decides whether a rule's trigger is satisfied by the
// current signals. It is pure apart from the warning sink.
type conditionEvaluator struct {
	warn WarnFunc
}

// matches reports whether every condition in the trigger holds. A signal
// key absent from the signals map fails the trigger; missing data means
// "not applicable", never an error. All conditions are evaluated even
// after a failure so unknown-operator warnings do not depend on map
// iteration order.
func (ev conditionEvaluator) matches(ruleID string, trigger rules.Trigger, signals Signals) bool {
	ok := true
	for key, cond := range trigger {
		value, present := signals[key]
		if !present {
			ok = false
			continue
		}
		if !ev.conditionHolds(ruleID, key, cond, value) {
			ok = false
		}
	}
	return ok
}

func (ev conditionEvaluator) conditionHolds(ruleID, key string, cond rules.Condition, value any) bool {
	if !cond.IsOperatorSet() {
		return looseEqual(value, cond.Scalar)
	}
	holds := true
	for _, check := range cond.Ops {
		if !ev.opHolds(ruleID, key, check, value) {
			holds = false
		}
	}
	return holds
}

// opHolds evaluates one operator/threshold pair. Ordering operators
// compare the signal as a number; equality operators use the same loose
// semantics as scalar conditions. An unrecognized operator fails and
// surfaces a warning.
func (ev conditionEvaluator) opHolds(ruleID, key string, check rules.OpCheck, value any) bool {
	switch check.Op {
	case rules.OpEQ:
		return looseEqual(value, check.Threshold)
	case rules.OpNEQ:
		return !looseEqual(value, check.Threshold)
	case rules.OpGT, rules.OpGTE, rules.OpLT, rules.OpLTE:
		n, ok := toNumber(value)
		if !ok {
			return false
		}
		switch check.Op {
		case rules.OpGT:
			return n > check.Threshold
		case rules.OpGTE:
			return n >= check.Threshold
		case rules.OpLT:
			return n < check.Threshold
		default:
			return n <= check.Threshold
		}
	default:
		ev.warn("unrecognized operator in trigger condition",
			logging.Field("rule_id", ruleID),
			logging.Field("signal", key),
			logging.Field("operator", check.Symbol),
		)
		return false
	}
}

// looseEqual compares a signal value against a condition literal. Equal
// strings and equal booleans match directly; everything else is compared
// numerically when both sides coerce to a number. A bool against a number
// coerces to 0/1, a numeric string to its value, and mismatched
// non-coercible types never match.
func looseEqual(a, b any) bool {
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return as == bs
		}
	}
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	return aok && bok && an == bn
}

// toNumber coerces a signal value to float64.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
