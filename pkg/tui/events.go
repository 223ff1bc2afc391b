package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/insert"
	"github.com/docker/mdattach/pkg/pubsub"
	"github.com/docker/mdattach/pkg/sizeguard"
)

// NoticeTopic carries user-facing notices, as plain text.
const NoticeTopic = "notice"

// Sender is the part of *tea.Program events are forwarded to.
type Sender interface {
	Send(msg tea.Msg)
}

// SizeNotifier publishes the size-limit notice on notices.
func SizeNotifier(notices *pubsub.Broker[string]) sizeguard.Notifier {
	return sizeguard.NotifierFunc(func(limitMiB int, oversized []attachment.FileDescriptor) {
		notices.Publish(NoticeTopic, sizeguard.Notice(limitMiB, oversized))
	})
}

// Forward sends insertion progress and notices to p until ctx is done or
// both brokers are closed.
func Forward(ctx context.Context, progress *pubsub.Broker[insert.Progress], notices *pubsub.Broker[string], p Sender) {
	progressCh := progress.Subscribe(ctx, insert.ProgressTopic)
	noticeCh := notices.Subscribe(ctx, NoticeTopic)

	for progressCh != nil || noticeCh != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-progressCh:
			if !ok {
				progressCh = nil
				continue
			}
			p.Send(ProgressMsg(ev.Data))
		case ev, ok := <-noticeCh:
			if !ok {
				noticeCh = nil
				continue
			}
			p.Send(NoticeMsg{Text: ev.Data})
		}
	}
}
