package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kkookk/kkookk/internal/workflow"
)

type userMessager interface {
	UserMessage() string
}

// OutcomeMarkdown composes the full-page result for a request in view v.
// fatal, when set, takes precedence.
func OutcomeMarkdown(req workflow.Request, v workflow.View, fatal error) string {
	var b strings.Builder
	if fatal != nil {
		v = workflow.ViewError
	}

	switch v {
	case workflow.ViewSuccess:
		b.WriteString("# " + successTitle(req.Kind) + "\n\n")
		writeSubject(&b, req)
		if req.Kind == workflow.KindMigration && req.Resolution.ApprovedCount != nil {
			fmt.Fprintf(&b, "%d stamps were added to your card.\n", *req.Resolution.ApprovedCount)
		}
	case workflow.ViewFailure:
		b.WriteString("# Request rejected\n\n")
		writeSubject(&b, req)
		reason := strings.TrimSpace(req.Resolution.Reason)
		if reason == "" {
			reason = "No reason given."
		}
		b.WriteString("> " + reason + "\n")
	case workflow.ViewExpired:
		b.WriteString("# Request expired\n\n")
		writeSubject(&b, req)
		b.WriteString("The store did not confirm in time. Ask the staff and try again.\n")
	case workflow.ViewWaiting:
		b.WriteString("# Waiting\n\n")
		writeSubject(&b, req)
	default:
		b.WriteString("# Something went wrong\n\n")
		switch {
		case fatal != nil:
			b.WriteString(errorText(fatal) + "\n")
		case req.Status == "":
			b.WriteString("The request has no status.\n")
		default:
			fmt.Fprintf(&b, "Unexpected status `%s`.\n", req.Status)
		}
	}
	return b.String()
}

func successTitle(kind workflow.Kind) string {
	switch kind {
	case workflow.KindIssuance:
		return "Stamp added"
	case workflow.KindRedemption:
		return "Reward redeemed"
	case workflow.KindMigration:
		return "Migration approved"
	}
	return "Approved"
}

func writeSubject(b *strings.Builder, req workflow.Request) {
	switch {
	case req.Title != "" && req.StoreName != "":
		fmt.Fprintf(b, "**%s** at %s\n\n", req.Title, req.StoreName)
	case req.Title != "":
		fmt.Fprintf(b, "**%s**\n\n", req.Title)
	case req.StoreName != "":
		fmt.Fprintf(b, "%s\n\n", req.StoreName)
	}
}

func errorText(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	return err.Error()
}
