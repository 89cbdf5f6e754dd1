package mailerlite

import (
	"encoding/json"
	"time"
)

// Campaign is one sent campaign as returned by the MailerLite API. The API
// payload is loosely typed and has grown fields over time, so the named
// fields cover what the archive consumes and Raw keeps the full payload for
// forward compatibility.
type Campaign struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Subject     string           `json:"subject"`
	Settings    CampaignSettings `json:"settings"`
	FinishedAt  string           `json:"finished_at"`
	ScheduledAt string           `json:"scheduled_at"`
	HTML        string           `json:"html"`
	Emails      []Email          `json:"emails"`

	// Raw is the unparsed API payload this campaign was decoded from.
	Raw json.RawMessage `json:"-"`
}

// CampaignSettings carries the subset of campaign settings the archive uses.
type CampaignSettings struct {
	PreviewText string `json:"preview_text"`
}

// Email is one message within a campaign. Sent campaigns have at least one.
type Email struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Content string `json:"content"`
}

// DisplaySubject resolves the campaign's subject line, falling back to the
// first message's subject and then the campaign name.
func (c *Campaign) DisplaySubject() string {
	if c.Subject != "" {
		return c.Subject
	}
	if len(c.Emails) > 0 && c.Emails[0].Subject != "" {
		return c.Emails[0].Subject
	}
	return c.Name
}

// ContentHTML resolves the campaign's HTML body, trying the response shapes
// the API is known to use: a top-level html field, the first message's html,
// then the first message's rendered content. Empty means no content.
func (c *Campaign) ContentHTML() string {
	if c.HTML != "" {
		return c.HTML
	}
	if len(c.Emails) > 0 {
		if c.Emails[0].HTML != "" {
			return c.Emails[0].HTML
		}
		if c.Emails[0].Content != "" {
			return c.Emails[0].Content
		}
	}
	return ""
}

// Layouts the API uses for campaign timestamps.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// SentAt resolves the campaign's send time from finished_at, falling back to
// scheduled_at. ok is false when neither parses.
func (c *Campaign) SentAt() (time.Time, bool) {
	for _, raw := range []string{c.FinishedAt, c.ScheduledAt} {
		if raw == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
