package storage

import (
	"context"
	"fmt"

	"github.com/lumbrjx/codek7/streaming/internal/model"
)

// Backend is what one storage location provides to the HLS builders.
type Backend interface {
	Store(ctx context.Context, p *model.StreamingPlaylist, filename string, content []byte) (string, error)
	Remove(ctx context.Context, p *model.StreamingPlaylist, filename string) error
	WithVideoFile(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error
	WithResolutionPlaylist(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error
}

// Artifacts dispatches to the backend matching the playlist's storage location.
type Artifacts struct {
	Local  Backend
	Object Backend
}

func (a *Artifacts) backend(p *model.StreamingPlaylist) (Backend, error) {
	var b Backend
	switch p.StorageLocation {
	case model.StorageLocal:
		b = a.Local
	case model.StorageObject:
		b = a.Object
	}
	if b == nil {
		return nil, fmt.Errorf("no storage backend configured for %s", p.StorageLocation)
	}
	return b, nil
}

func (a *Artifacts) Store(ctx context.Context, p *model.StreamingPlaylist, filename string, content []byte) (string, error) {
	b, err := a.backend(p)
	if err != nil {
		return "", err
	}
	return b.Store(ctx, p, filename, content)
}

func (a *Artifacts) Remove(ctx context.Context, p *model.StreamingPlaylist, filename string) error {
	b, err := a.backend(p)
	if err != nil {
		return err
	}
	return b.Remove(ctx, p, filename)
}

func (a *Artifacts) WithVideoFile(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error {
	b, err := a.backend(p)
	if err != nil {
		return err
	}
	return b.WithVideoFile(ctx, p, f, fn)
}

func (a *Artifacts) WithResolutionPlaylist(ctx context.Context, p *model.StreamingPlaylist, f *model.VideoFile, fn func(path string) error) error {
	b, err := a.backend(p)
	if err != nil {
		return err
	}
	return b.WithResolutionPlaylist(ctx, p, f, fn)
}
