package constants

import "fmt"

// Cache tags shared by the API response cache and the console query cache.
const (
	TagLinks              = "links"
	TagTransactions       = "transactions"
	TagPartials           = "partials"
	TagRemindersSent      = "reminders:sent"
	TagRemindersScheduled = "reminders:scheduled"
	TagSettings           = "settings"
	TagAnalytics          = "analytics"
)

func TagLink(id fmt.Stringer) string {
	return "link:" + id.String()
}

// Tags a ledger write makes stale.
var LedgerTags = []string{TagLinks, TagTransactions, TagPartials, TagAnalytics}

// Tags a reminder dispatch makes stale.
var ReminderTags = []string{TagRemindersSent, TagRemindersScheduled, TagPartials}
