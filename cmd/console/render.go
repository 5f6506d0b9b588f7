package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/internal/dialog"
)

// render prints a turn's activities. Delays are slept, capped at two seconds.
func render(w io.Writer, resp *conversation.Response, sleep func(time.Duration)) {
	if resp == nil {
		return
	}
	for _, act := range resp.Activities {
		switch act.Type {
		case dialog.ActivityDelay:
			d := time.Duration(act.DelayMS) * time.Millisecond
			sleep(min(d, 2*time.Second))
		default:
			if act.Text != "" {
				fmt.Fprintf(w, "bot: %s\n", act.Text)
			}
			if len(act.Choices) > 0 {
				fmt.Fprintf(w, "     [%s]\n", strings.Join(act.Choices, "] ["))
			}
			for _, att := range act.Attachments {
				fmt.Fprintf(w, "     <%s>\n%s\n", att.ContentType, indentJSON(att.Content))
			}
		}
	}
}

func indentJSON(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.MarshalIndent(v, "     ", "  ")
	if err != nil {
		return string(raw)
	}
	return "     " + string(out)
}
