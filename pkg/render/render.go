// Package render provides frame sinks: terminal text, PNG snapshots, MQTT
// messages, and external plugin processes.
package render

import (
	"context"
	"errors"

	"github.com/ccollicutt/gnsstage/pkg/playback"
)

// Renderer draws frames and releases its resources on Close.
type Renderer interface {
	Render(ctx context.Context, f *playback.Frame) error
	Close() error
}

// Multi fans frames out to several renderers.
type Multi struct {
	renderers []Renderer
}

// NewMulti creates a Multi over rs. Nil entries are ignored.
func NewMulti(rs ...Renderer) *Multi {
	m := &Multi{}
	for _, r := range rs {
		if r != nil {
			m.renderers = append(m.renderers, r)
		}
	}
	return m
}

// Render passes f to every renderer and returns the first error after all
// have been tried.
func (m *Multi) Render(ctx context.Context, f *playback.Frame) error {
	var first error
	for _, r := range m.renderers {
		if err := r.Render(ctx, f); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every renderer and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, r := range m.renderers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of renderers.
func (m *Multi) Len() int { return len(m.renderers) }
