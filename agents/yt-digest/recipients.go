package ytdigest

import (
	"strings"

	"yt-digest/shared/config"
)

// RecipientResolver maps a channel to the addresses notified about it.
type RecipientResolver struct {
	defaults   []string
	perChannel map[string][]string
}

func NewRecipientResolver(cfg config.RecipientsConfig) *RecipientResolver {
	return &RecipientResolver{
		defaults:   cfg.Default,
		perChannel: cfg.PerChannel,
	}
}

// Resolve returns the channel's own list when it is non-empty, otherwise the
// default list. Channel ids match case-sensitively. Addresses are
// de-duplicated case-insensitively, keeping the first spelling.
func (r *RecipientResolver) Resolve(channelID string) []string {
	list := r.perChannel[channelID]
	if len(dedupe(list)) == 0 {
		list = r.defaults
	}
	return dedupe(list)
}

func dedupe(addrs []string) []string {
	var out []string
	seen := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
