package telegram

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// chatRef addresses a chat by @username or numeric id.
type chatRef string

func (c chatRef) Recipient() string { return string(c) }

// ChannelRef normalizes a channel setting ("name", "@name", "https://t.me/name" or a
// numeric id) into a Telegram chat reference.
func ChannelRef(channel string) string {
	channel = strings.TrimSpace(channel)
	channel = strings.TrimPrefix(channel, "https://")
	channel = strings.TrimPrefix(channel, "http://")
	channel = strings.TrimPrefix(channel, "t.me/")
	if channel == "" || strings.HasPrefix(channel, "@") || strings.HasPrefix(channel, "-") {
		return channel
	}
	if channel[0] >= '0' && channel[0] <= '9' {
		return channel
	}
	return "@" + channel
}

// MembershipChecker asks Telegram whether a user belongs to the required channel.
type MembershipChecker struct {
	bot     *tele.Bot
	channel chatRef
}

// NewMembershipChecker builds a checker for channel.
func NewMembershipChecker(bot *tele.Bot, channel string) *MembershipChecker {
	return &MembershipChecker{bot: bot, channel: chatRef(ChannelRef(channel))}
}

// IsMember reports whether userID is a creator, administrator or plain member of the
// channel. Restricted, left and banned users are not.
func (m *MembershipChecker) IsMember(ctx context.Context, userID int64) (bool, error) {
	member, err := callWithContext(ctx, func() (*tele.ChatMember, error) {
		return m.bot.ChatMemberOf(m.channel, &tele.User{ID: userID})
	})
	if err != nil {
		return false, fmt.Errorf("telegram: chat member %s: %w", m.channel, err)
	}
	if member == nil {
		return false, nil
	}
	switch member.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true, nil
	default:
		return false, nil
	}
}

// AdminNotifier delivers direct messages to the administrator.
type AdminNotifier struct {
	bot     *tele.Bot
	adminID int64
}

// NewAdminNotifier builds a notifier for adminID.
func NewAdminNotifier(bot *tele.Bot, adminID int64) *AdminNotifier {
	return &AdminNotifier{bot: bot, adminID: adminID}
}

// NotifyAdmin sends text to the administrator as plain text.
func (n *AdminNotifier) NotifyAdmin(ctx context.Context, text string) error {
	if n.adminID == 0 {
		return fmt.Errorf("telegram: admin id not configured")
	}
	_, err := callWithContext(ctx, func() (*tele.Message, error) {
		return n.bot.Send(&tele.User{ID: n.adminID}, text)
	})
	if err != nil {
		return fmt.Errorf("telegram: notify admin: %w", err)
	}
	return nil
}

// callWithContext runs a blocking telebot call and gives up when ctx ends first.
// The call itself keeps running until the HTTP client times out.
func callWithContext[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{val: v, err: err}
	}()
	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
