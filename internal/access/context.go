package access

import "context"

type decisionContextKey struct{}

// ContextWithDecision attaches the resolved decision to the context.
func ContextWithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionContextKey{}, d)
}

// DecisionFromContext extracts the decision attached by the session
// middleware. Absence reads as the fail-closed decision.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	if ctx == nil {
		return Denied(), false
	}
	d, ok := ctx.Value(decisionContextKey{}).(Decision)
	if !ok {
		return Denied(), false
	}
	return d, true
}
