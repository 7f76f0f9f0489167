package main

import (
	"errors"

	"github.com/zeusync/rigsmith/internal/core/events/bus"
	"github.com/zeusync/rigsmith/internal/core/scene"
)

// sceneActivity counts entity lifecycle events seen on the scene topic.
type sceneActivity struct {
	created   int
	destroyed int
	subs      []bus.Subscription
}

func watchScene(events bus.EventBus) (*sceneActivity, error) {
	act := &sceneActivity{}
	for eventType, counter := range map[string]*int{
		scene.EventEntityCreated:   &act.created,
		scene.EventEntityDestroyed: &act.destroyed,
	} {
		sub, err := events.SubscribeTopic(scene.Topic, eventType, func(bus.Event) error {
			*counter++
			return nil
		})
		if err != nil {
			return nil, errors.Join(err, act.stop())
		}
		act.subs = append(act.subs, sub)
	}
	return act, nil
}

func (s *sceneActivity) stop() error {
	var errs []error
	for _, sub := range s.subs {
		errs = append(errs, sub.Cancel())
	}
	s.subs = nil
	return errors.Join(errs...)
}
