package view

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mounter is any controller that can perform its initial load.
type Mounter interface {
	Mount(ctx context.Context) error
}

// Dashboard groups the controllers shown on the dashboard page. Each one
// still owns its data; the dashboard only loads them together.
type Dashboard struct {
	Profile   *ProfileEditor
	MyPosts   *MyPosts
	Feedbacks *Feedbacks
}

// NewDashboard builds the dashboard controllers over one session.
func NewDashboard(community CommunityAPI, feedback FeedbackAPI, profile ProfileAPI, sess ProfileSession, log *zap.Logger) *Dashboard {
	return &Dashboard{
		Profile:   NewProfileEditor(profile, sess, log),
		MyPosts:   NewMyPosts(community, sess, log),
		Feedbacks: NewFeedbacks(feedback, sess, log),
	}
}

// Mount loads every panel concurrently and returns the first failure. A
// failing panel does not cancel the others.
func (d *Dashboard) Mount(ctx context.Context) error {
	return MountAll(ctx, d.Profile, d.MyPosts, d.Feedbacks)
}

// Close unmounts every panel.
func (d *Dashboard) Close() {
	d.Profile.Close()
	d.MyPosts.Close()
	d.Feedbacks.Close()
}

// MountAll mounts views concurrently and waits for all of them.
func MountAll(ctx context.Context, views ...Mounter) error {
	var g errgroup.Group
	for _, v := range views {
		g.Go(func() error { return v.Mount(ctx) })
	}
	return g.Wait()
}
