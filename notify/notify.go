// Package notify implements the EventNotifyWriter collaborator: the
// chassis manager's outward gNMI-style change notification, backed by
// Redis PUBLISH the way the platinasystems/goes redis package notifies
// subscribers of a changed key (SPEC_FULL.md §6.5, "DOMAIN STACK").
package notify

import (
	"fmt"

	"github.com/garyburd/redigo/redis"
	"github.com/jpillora/backoff"

	"github.com/platinasystems/bcmchassis/chassis"
)

// Writer is the EventNotifyWriter collaborator boundary: the manager
// calls PortOperStateChanged whenever the Event Pipeline updates a
// port's live link state. A non-nil return tells the caller to drop its
// reference to the writer (SPEC_FULL.md §4.5's linkscan handler rule).
type Writer interface {
	PortOperStateChanged(slot, port, channel int, ls chassis.LinkState) error
	Close() error
}

// RedisWriter publishes port operational-state changes on a Redis
// channel, the way platinasystems/goes's redis.Publish helper is used by
// its own event producers. Each call takes a connection from the pool,
// which dials again when none is usable; no delay is applied between
// dial attempts (the backoff is only reset after a successful dial).
type RedisWriter struct {
	pool    *redis.Pool
	channel string
}

// NewRedisWriter dials addr lazily via a redis.Pool and publishes every
// notification on channel.
func NewRedisWriter(addr, channel string) *RedisWriter {
	b := &backoff.Backoff{Min: 10e6, Max: 2e9, Factor: 2, Jitter: true}
	return &RedisWriter{
		channel: channel,
		pool: &redis.Pool{
			MaxIdle:     4,
			IdleTimeout: 0,
			Dial: func() (redis.Conn, error) {
				c, err := redis.Dial("tcp", addr)
				if err != nil {
					return nil, err
				}
				b.Reset()
				return c, nil
			},
		},
	}
}

func (w *RedisWriter) PortOperStateChanged(slot, port, channel int, ls chassis.LinkState) error {
	conn := w.pool.Get()
	defer conn.Close()
	msg := fmt.Sprintf("%d.%d.%d: oper-status: %s", slot, port, channel, ls)
	_, err := conn.Do("PUBLISH", w.channel, msg)
	return err
}

func (w *RedisWriter) Close() error {
	return w.pool.Close()
}

// NullWriter discards every notification; used when no notify backend
// is configured.
type NullWriter struct{}

func (NullWriter) PortOperStateChanged(slot, port, channel int, ls chassis.LinkState) error {
	return nil
}
func (NullWriter) Close() error { return nil }
