package services

import (
	"math"
	"sort"

	"crm_dashboard_go/models"
)

const (
	// RecentClientsLimit is the number of clients shown in the dashboard table
	RecentClientsLimit = 5
	// UnknownIndustry labels clients without an industry
	UnknownIndustry = "Unknown"
)

// ChartDatum is one bar or slice of a dashboard chart
type ChartDatum struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// DashboardStats is the aggregate shown on the dashboard
type DashboardStats struct {
	TotalClients   int             `json:"total_clients"`
	ActiveDeals    int             `json:"active_deals"`
	ConversionRate int             `json:"conversion_rate"`
	TotalRevenue   float64         `json:"total_revenue"`
	StatusData     []ChartDatum    `json:"status_data"`
	IndustryData   []ChartDatum    `json:"industry_data"`
	RecentClients  []models.Client `json:"recent_clients"`
	Loading        bool            `json:"loading"`
	Error          string          `json:"error,omitempty"`
}

// EmptyDashboardStats is the state before the first load completes
func EmptyDashboardStats() DashboardStats {
	return DashboardStats{
		StatusData:    []ChartDatum{},
		IndustryData:  []ChartDatum{},
		RecentClients: []models.Client{},
		Loading:       true,
	}
}

// ComputeDashboardStats aggregates all clients. recent is shown as is; when
// nil, the most recently created clients of all are used instead.
// Histogram entries keep the order in which each label first appears.
func ComputeDashboardStats(all []models.Client, recent []models.Client) DashboardStats {
	stats := DashboardStats{
		TotalClients: len(all),
		StatusData:   []ChartDatum{},
		IndustryData: []ChartDatum{},
	}

	statusIdx := make(map[string]int)
	industryIdx := make(map[string]int)

	for _, c := range all {
		if c.Status == models.ClientStatusActive {
			stats.ActiveDeals++
		}
		stats.TotalRevenue += c.Revenue

		label := models.StatusLabel(c.Status)
		if i, ok := statusIdx[label]; ok {
			stats.StatusData[i].Value++
		} else {
			statusIdx[label] = len(stats.StatusData)
			stats.StatusData = append(stats.StatusData, ChartDatum{Name: label, Value: 1})
		}

		industry := c.Industry
		if industry == "" {
			industry = UnknownIndustry
		}
		if i, ok := industryIdx[industry]; ok {
			stats.IndustryData[i].Value++
		} else {
			industryIdx[industry] = len(stats.IndustryData)
			stats.IndustryData = append(stats.IndustryData, ChartDatum{Name: industry, Value: 1})
		}
	}

	if stats.TotalClients > 0 {
		stats.ConversionRate = int(math.Round(float64(stats.ActiveDeals) / float64(stats.TotalClients) * 100))
	}

	if recent == nil {
		recent = MostRecentClients(all, RecentClientsLimit)
	}
	stats.RecentClients = append([]models.Client{}, recent...)

	return stats
}

// MostRecentClients returns up to n clients ordered by creation time, newest first
func MostRecentClients(clients []models.Client, n int) []models.Client {
	sorted := append([]models.Client{}, clients...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Clone returns a deep copy of the stats
func (s DashboardStats) Clone() DashboardStats {
	cp := s
	cp.StatusData = append([]ChartDatum{}, s.StatusData...)
	cp.IndustryData = append([]ChartDatum{}, s.IndustryData...)
	cp.RecentClients = make([]models.Client, len(s.RecentClients))
	for i, c := range s.RecentClients {
		cp.RecentClients[i] = c
		if c.AssignedUser != nil {
			ref := *c.AssignedUser
			cp.RecentClients[i].AssignedUser = &ref
		}
	}
	return cp
}
