package dashboard

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

const (
	DefaultTopClients = 6
	RecentTickets     = 8
	OtherLabel        = "Other"
)

// MonthCount is one bar of the tickets-per-month chart.
type MonthCount struct {
	Month time.Month `json:"month"`
	Label string     `json:"label"`
	Count int        `json:"count"`
}

// TicketsPerMonth buckets tickets by the calendar month (UTC) they were
// created in, across all years. Tickets without a timestamp are skipped.
func TicketsPerMonth(tickets []domain.TicketListItem) []MonthCount {
	out := make([]MonthCount, 12)
	for i := range out {
		m := time.Month(i + 1)
		out[i] = MonthCount{Month: m, Label: m.String()[:3]}
	}
	for _, t := range tickets {
		if t.CreatedAt.IsZero() {
			continue
		}
		out[t.CreatedAt.UTC().Month()-1].Count++
	}
	return out
}

// ClientShare is one slice of the projects-per-client chart. The Other
// slice has an empty ClientID.
type ClientShare struct {
	ClientID string `json:"clientId,omitempty"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

// ProjectsPerClient counts projects per client, largest first, keeping the
// first top clients and folding the rest into one Other slice. Ties keep
// the order in which clients first appear.
func ProjectsPerClient(projects []domain.ProjectListItem, clients []domain.ClientListItem, top int) []ClientShare {
	if top <= 0 {
		top = DefaultTopClients
	}

	var shares []ClientShare
	index := map[string]int{}
	for _, p := range projects {
		id := p.ClientID
		if id == "" {
			id = p.Client.ID
		}
		if id == "" {
			continue
		}
		i, ok := index[id]
		if !ok {
			i = len(shares)
			index[id] = i
			shares = append(shares, ClientShare{ClientID: id})
		}
		shares[i].Count++
	}

	slices.SortStableFunc(shares, func(a, b ClientShare) int {
		return cmp.Compare(b.Count, a.Count)
	})

	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}

	out := make([]ClientShare, 0, min(len(shares), top)+1)
	other := 0
	for i, s := range shares {
		if i >= top {
			other += s.Count
			continue
		}
		s.Name = names[s.ClientID]
		if s.Name == "" {
			s.Name = "Client " + s.ClientID
		}
		out = append(out, s)
	}
	if other > 0 {
		out = append(out, ClientShare{Name: OtherLabel, Count: other})
	}
	return out
}

// Summary holds the headline figures of the dashboard.
type Summary struct {
	Clients     int                     `json:"clients"`
	Projects    int                     `json:"projects"`
	Tickets     int                     `json:"tickets"`
	OpenTickets int                     `json:"openTickets"`
	OpenPercent int                     `json:"openPercent"`
	Recent      []domain.TicketListItem `json:"recent"`
}

// Summarize computes the headline figures. Open means OPEN or IN_PROGRESS.
func Summarize(snap *Snapshot) Summary {
	s := Summary{
		Clients:  len(snap.Clients),
		Projects: len(snap.Projects),
		Tickets:  len(snap.Tickets),
	}
	for _, t := range snap.Tickets {
		if t.Status.Open() {
			s.OpenTickets++
		}
	}
	if s.Tickets > 0 {
		s.OpenPercent = int(math.Round(float64(s.OpenTickets) * 100 / float64(s.Tickets)))
	}

	recent := slices.Clone(snap.Tickets)
	slices.SortStableFunc(recent, func(a, b domain.TicketListItem) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	s.Recent = recent[:min(len(recent), RecentTickets)]
	return s
}

// FilterTickets keeps the tickets whose title or description contains
// query, ignoring case. A blank query keeps everything.
func FilterTickets(tickets []domain.TicketListItem, query string) []domain.TicketListItem {
	pred := listing.Search(domain.TicketSearchFields, query)
	out := make([]domain.TicketListItem, 0, len(tickets))
	for _, t := range tickets {
		if pred.Matches(ticketField(t)) {
			out = append(out, t)
		}
	}
	return out
}

func ticketField(t domain.TicketListItem) func(string) string {
	return func(field string) string {
		switch field {
		case "title":
			return t.Title
		case "description":
			if t.Description != nil {
				return *t.Description
			}
		}
		return ""
	}
}
