package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"crm_dashboard_go/models"
)

// Sentinel filter values
const (
	FilterAll        = "all"
	FilterUnassigned = "unassigned"
)

// DefaultRevenueBuckets are the revenue ranges offered by the clients filter.
// Adjacent buckets share the 500 boundary; both claim it.
var DefaultRevenueBuckets = []string{
	"0-500",
	"500-999",
	"1000-4999",
	"5000-9999",
	"10000-49999",
	"50000+",
}

// ClientFilter holds the structured predicates of the clients list.
// An empty field behaves like "all".
type ClientFilter struct {
	Country      string `json:"country" query:"country"`
	Industry     string `json:"industry" query:"industry"`
	Status       string `json:"status" query:"status"`
	AssignedTo   string `json:"assigned_to" query:"assigned_to"`
	RevenueRange string `json:"revenue_range" query:"revenue"`
}

// DefaultClientFilter returns a filter with every predicate disabled
func DefaultClientFilter() ClientFilter {
	return ClientFilter{
		Country:      FilterAll,
		Industry:     FilterAll,
		Status:       FilterAll,
		AssignedTo:   FilterAll,
		RevenueRange: FilterAll,
	}
}

// IsActive reports whether any predicate is enabled
func (f ClientFilter) IsActive() bool {
	for _, v := range []string{f.Country, f.Industry, f.Status, f.AssignedTo, f.RevenueRange} {
		if !isWildcard(v) {
			return true
		}
	}
	return false
}

// Validate checks the filter values that have a closed domain
func (f ClientFilter) Validate() error {
	if !isWildcard(f.Status) && !models.IsValidClientStatus(f.Status) {
		return newValidationError("status", "unknown status filter")
	}
	if !isWildcard(f.RevenueRange) {
		if _, err := ParseRevenueRange(f.RevenueRange); err != nil {
			return err
		}
	}
	return nil
}

func isWildcard(v string) bool {
	return v == "" || v == FilterAll
}

// RevenueRange is an inclusive revenue interval. Max is +Inf for open-ended ranges.
type RevenueRange struct {
	Min float64
	Max float64
}

// ParseRevenueRange parses "<min>-<max>" or "<min>+"
func ParseRevenueRange(s string) (RevenueRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RevenueRange{}, newValidationError("revenue", "empty revenue range")
	}

	if strings.HasSuffix(s, "+") {
		lo, err := parseBound(strings.TrimSuffix(s, "+"))
		if err != nil {
			return RevenueRange{}, err
		}
		return RevenueRange{Min: lo, Max: math.Inf(1)}, nil
	}

	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return RevenueRange{}, newValidationError("revenue", fmt.Sprintf("invalid revenue range %q", s))
	}
	lo, err := parseBound(parts[0])
	if err != nil {
		return RevenueRange{}, err
	}
	hi, err := parseBound(parts[1])
	if err != nil {
		return RevenueRange{}, err
	}
	if lo > hi {
		return RevenueRange{}, newValidationError("revenue", fmt.Sprintf("invalid revenue range %q: min exceeds max", s))
	}
	return RevenueRange{Min: lo, Max: hi}, nil
}

func parseBound(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, newValidationError("revenue", fmt.Sprintf("invalid revenue bound %q", s))
	}
	return v, nil
}

// Contains reports whether v lies in [Min, Max]
func (r RevenueRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// SearchClients returns the clients whose name, email or country contains term, ignoring case.
// The input slice is never modified.
func SearchClients(clients []models.Client, term string) []models.Client {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Client, 0, len(clients))
	for _, c := range clients {
		if term == "" ||
			strings.Contains(strings.ToLower(c.Name), term) ||
			strings.Contains(strings.ToLower(c.Email), term) ||
			strings.Contains(strings.ToLower(c.Country), term) {
			out = append(out, c)
		}
	}
	return out
}

// FilterClients returns the clients matching every enabled predicate of f.
// An unparsable revenue range matches nothing. The input slice is never modified.
func FilterClients(clients []models.Client, f ClientFilter) []models.Client {
	var rr *RevenueRange
	if !isWildcard(f.RevenueRange) {
		parsed, err := ParseRevenueRange(f.RevenueRange)
		if err != nil {
			return []models.Client{}
		}
		rr = &parsed
	}

	out := make([]models.Client, 0, len(clients))
	for i := range clients {
		if matchClient(&clients[i], f, rr) {
			out = append(out, clients[i])
		}
	}
	return out
}

func matchClient(c *models.Client, f ClientFilter, rr *RevenueRange) bool {
	if !isWildcard(f.Country) && c.Country != f.Country {
		return false
	}
	if !isWildcard(f.Industry) && c.Industry != f.Industry {
		return false
	}
	if !isWildcard(f.Status) && c.Status != f.Status {
		return false
	}

	switch {
	case isWildcard(f.AssignedTo):
	case f.AssignedTo == FilterUnassigned:
		if c.IsAssigned() {
			return false
		}
	default:
		if !c.IsAssigned() || *c.AssignedUserID != f.AssignedTo {
			return false
		}
	}

	if rr != nil && !rr.Contains(c.Revenue) {
		return false
	}
	return true
}

// DistinctCountries returns the sorted set of client countries, for filter options
func DistinctCountries(clients []models.Client) []string {
	return distinct(clients, func(c *models.Client) string { return c.Country })
}

// DistinctIndustries returns the sorted set of client industries, for filter options
func DistinctIndustries(clients []models.Client) []string {
	return distinct(clients, func(c *models.Client) string { return c.Industry })
}

func distinct(clients []models.Client, field func(*models.Client) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for i := range clients {
		v := field(&clients[i])
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// InteractionFilter narrows a client's interaction history
type InteractionFilter struct {
	Type     string
	DateFrom *time.Time // start of day, inclusive
	DateTo   *time.Time // start of day, the whole day is included
}

// ParseInteractionFilter builds a filter from query values (dates as YYYY-MM-DD)
func ParseInteractionFilter(typ, dateFrom, dateTo string) (InteractionFilter, error) {
	f := InteractionFilter{Type: typ}
	if !isWildcard(typ) && !models.IsValidInteractionType(typ) {
		return f, newValidationError("type", "unknown interaction type")
	}
	if dateFrom != "" {
		d, err := ParseDate(dateFrom)
		if err != nil {
			return f, newValidationError("date_from", err.Error())
		}
		f.DateFrom = &d
	}
	if dateTo != "" {
		d, err := ParseDate(dateTo)
		if err != nil {
			return f, newValidationError("date_to", err.Error())
		}
		f.DateTo = &d
	}
	return f, nil
}

// FilterInteractions returns the interactions matching f. The input slice is never modified.
func FilterInteractions(interactions []models.Interaction, f InteractionFilter) []models.Interaction {
	out := make([]models.Interaction, 0, len(interactions))
	for _, in := range interactions {
		if !isWildcard(f.Type) && in.Type != f.Type {
			continue
		}
		if f.DateFrom != nil && in.CreatedAt.Before(*f.DateFrom) {
			continue
		}
		// Add 24 hours to include the entire day
		if f.DateTo != nil && !in.CreatedAt.Before(f.DateTo.Add(24*time.Hour)) {
			continue
		}
		out = append(out, in)
	}
	return out
}
