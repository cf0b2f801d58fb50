package chatview

import "time"

// MockContacts seeds the demo contact list.
func MockContacts() []Contact {
	return []Contact{
		{ID: "dana", Name: "Dana Whitfield", Online: true},
		{ID: "pat", Name: "Pat Okafor", LastSeen: "last seen today at 09:12"},
		{ID: "family", Name: "Family", LastSeen: "Mum, Dad, Sam"},
		{ID: "lee", Name: "Lee Park", LastSeen: "last seen yesterday"},
	}
}

// MockThreads seeds one short thread per mock contact, relative to now.
func MockThreads(now time.Time) map[string][]Message {
	at := func(minutesAgo int) time.Time { return now.Add(-time.Duration(minutesAgo) * time.Minute) }
	return map[string][]Message{
		"dana": {
			{ID: 1, Text: "Are we still on for lunch?", Time: at(42)},
			{ID: 2, FromMe: true, Text: "Yes, 12:30 at the usual place", Time: at(40), Status: StatusRead},
			{ID: 3, Text: "Perfect, see you there", Time: at(39)},
		},
		"pat": {
			{ID: 4, FromMe: true, Text: "Sent you the slides", Time: at(180), Status: StatusDelivered},
			{ID: 5, Text: "Thanks! Will review tonight", Time: at(175)},
		},
		"family": {
			{ID: 6, Text: "Dinner on Sunday?", Time: at(600)},
		},
		"lee": {},
	}
}
