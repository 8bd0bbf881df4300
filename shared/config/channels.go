package config

import (
	"regexp"
	"strings"
)

// ChannelsFormat records which shape the [CHANNELS] section was written in.
type ChannelsFormat int

const (
	ChannelsFormatNone ChannelsFormat = iota
	// ChannelsFormatIDList is `channel_ids = UC...,UC...`.
	ChannelsFormatIDList
	// ChannelsFormatLabeled is one `label = UC...` entry per line.
	ChannelsFormatLabeled
)

func (f ChannelsFormat) String() string {
	switch f {
	case ChannelsFormatIDList:
		return "channel_ids"
	case ChannelsFormatLabeled:
		return "labeled"
	default:
		return "none"
	}
}

// ChannelsConfig is the normalized channel list. IDs keep configuration order.
type ChannelsConfig struct {
	Format ChannelsFormat
	IDs    []string
	// Labels maps channel id to its label; only set for the labeled format.
	Labels map[string]string
}

const channelIDsKey = "channel_ids"

var channelIDPattern = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)

// LooksLikeChannelID reports whether id has the shape of a YouTube channel id.
func LooksLikeChannelID(id string) bool {
	return channelIDPattern.MatchString(id)
}

func (b *builder) parseChannels(s *section) ChannelsConfig {
	out := ChannelsConfig{}
	if s == nil || len(s.keys) == 0 {
		return out
	}

	_, hasList := s.get(channelIDsKey)
	if hasList && len(s.keys) > 1 {
		b.fail("CHANNELS", "", "mixes the channel_ids list with labeled entries; use one form")
		return out
	}

	seen := make(map[string]bool)
	add := func(id, label string) {
		if seen[id] {
			b.warn("channel %s is listed more than once; keeping the first entry", id)
			return
		}
		seen[id] = true
		out.IDs = append(out.IDs, id)
		if label != "" {
			out.Labels[id] = label
		}
		if !LooksLikeChannelID(id) {
			b.warn("channel %q does not look like a YouTube channel id", id)
		}
	}

	if hasList {
		out.Format = ChannelsFormatIDList
		value, _ := s.get(channelIDsKey)
		for _, id := range SplitList(value) {
			add(id, "")
		}
		return out
	}

	out.Format = ChannelsFormatLabeled
	out.Labels = make(map[string]string)
	for _, label := range s.keys {
		id := strings.TrimSpace(s.values[label])
		if id == "" {
			b.warn("channel entry %q has no channel id; ignoring it", label)
			continue
		}
		add(id, label)
	}
	return out
}

const defaultRecipientsKey = "default_recipients"

func (b *builder) parseRecipients(s *section, channelIDs []string) RecipientsConfig {
	out := RecipientsConfig{PerChannel: make(map[string][]string)}
	if s == nil {
		return out
	}

	configured := make(map[string]bool, len(channelIDs))
	for _, id := range channelIDs {
		configured[id] = true
	}

	for _, key := range s.keys {
		emails := SplitList(s.values[key])
		if strings.EqualFold(key, defaultRecipientsKey) {
			out.Default = emails
			continue
		}
		if !LooksLikeChannelID(key) {
			b.warn("[CHANNEL_RECIPIENTS] key %q is not a channel id", key)
		} else if !configured[key] {
			b.warn("[CHANNEL_RECIPIENTS] key %s matches no configured channel (ids are case-sensitive)", key)
		}
		// An empty list means "use the default"; leaving it out has that effect.
		if len(emails) > 0 {
			out.PerChannel[key] = emails
		}
	}
	return out
}

// SafetySetting is one CATEGORY:THRESHOLD pair for the generative model.
type SafetySetting struct {
	Category  string
	Threshold string
}

func (b *builder) parseSafetySettings(value string) []SafetySetting {
	var out []SafetySetting
	for _, item := range SplitList(value) {
		category, threshold, ok := strings.Cut(item, ":")
		category = strings.TrimSpace(category)
		threshold = strings.TrimSpace(threshold)
		if !ok || category == "" || threshold == "" {
			b.warn("ignoring malformed safety setting %q", item)
			continue
		}
		if !strings.HasPrefix(category, "HARM_CATEGORY_") {
			b.warn("ignoring invalid safety setting category %q", category)
			continue
		}
		out = append(out, SafetySetting{Category: category, Threshold: threshold})
	}
	return out
}
