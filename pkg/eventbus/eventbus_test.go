package eventbus_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/smartq/launchpad/pkg/eventbus"
)

type siteEvent struct {
	SiteID string
}

func TestPublish_MatchingHandlerReceivesEvent(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())

	var got *siteEvent
	bus.Subscribe(func(e *siteEvent) {
		got = e
	})

	bus.Publish(&siteEvent{SiteID: "abc"})
	require.NotNil(t, got)
	require.Equal(t, "abc", got.SiteID)
}

func TestPublish_NonMatchingHandlerIgnored(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())

	called := false
	bus.Subscribe(func(s string) {
		called = true
	})

	bus.Publish(&siteEvent{SiteID: "abc"})
	require.False(t, called)
}

func TestUnsubscribe_RemovesHandler(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())

	handler := func(e *siteEvent) {}
	bus.Subscribe(handler)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Unsubscribe(handler)
	require.Equal(t, 0, bus.SubscribersCount())
}

func TestPublish_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	bus := eventbus.NewEventPublisher(logger)

	calls := 0
	bus.Subscribe(func(e *siteEvent) { panic("boom") })
	bus.Subscribe(func(e *siteEvent) { calls++ })

	bus.Publish(&siteEvent{SiteID: "abc"})
	require.Equal(t, 1, calls)
}

func TestMatchSignature(t *testing.T) {
	handler := func(e *siteEvent, n int) {}
	require.True(t, eventbus.MatchSignature(handler, []interface{}{&siteEvent{}, 1}))
	require.False(t, eventbus.MatchSignature(handler, []interface{}{&siteEvent{}}))
	require.False(t, eventbus.MatchSignature(42, []interface{}{&siteEvent{}}))
}
