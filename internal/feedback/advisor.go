package feedback

import "context"

// Advisor turns similar past feedback into synthesis prompt context.
type Advisor struct {
	store     Store
	threshold float64
	limit     int
}

func NewAdvisor(store Store, threshold float64) *Advisor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Advisor{
		store:     store,
		threshold: threshold,
		limit:     DefaultContextLimit,
	}
}

func (a *Advisor) FeedbackContext(ctx context.Context, question string) (string, error) {
	matches, err := a.store.QuerySimilar(ctx, question, a.threshold)
	if err != nil {
		return "", err
	}
	return BuildContext(matches, a.limit), nil
}
