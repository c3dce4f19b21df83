package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_DeliversToEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string
	d.Subscribe(EventEmergencyTokenIssued, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.PatientID)
		return errors.New("sink down")
	})
	d.Subscribe(EventEmergencyTokenIssued, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.PatientID)
		return nil
	})
	d.Subscribe(EventEmergencyTokenRevoked, func(context.Context, Event) error {
		t.Fatal("revoked handler must not run")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventEmergencyTokenIssued, PatientID: "p-1"})
	assert.EqualError(t, err, "sink down")
	assert.Equal(t, []string{"first:p-1", "second:p-1"}, got)
}

func TestNop(t *testing.T) {
	var d Dispatcher = Nop{}
	d.Subscribe(EventEmergencyAccessed, nil)
	assert.NoError(t, d.Publish(context.Background(), Event{}))
}
