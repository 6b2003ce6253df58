package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingNotifier struct {
	got []BudgetWarning
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, w BudgetWarning) error {
	r.got = append(r.got, w)
	return r.err
}

func TestNotifiers_FanOut(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{err: errors.New("queue down")}
	c := &recordingNotifier{}

	err := Notifiers{a, nil, b, c}.Notify(context.Background(), BudgetWarning{UserID: 3, Month: "2024-05"})

	// 某个通道失败不影响其他通道
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.Len(t, c.got, 1)
	assert.EqualError(t, err, "queue down")
}

func TestNotifiers_Empty(t *testing.T) {
	assert.NoError(t, Notifiers(nil).Notify(context.Background(), BudgetWarning{}))
}
