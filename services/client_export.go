package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"crm_dashboard_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	clientSheet = "Clients"

	// unassignedLabel marks a client with no assignee in the "Assigned To" column.
	// A blank cell means the importing user instead.
	unassignedLabel = "Unassigned"

	lastContactLayout = "2006-01-02"
)

// clientColumns is the column layout shared by export and import
var clientColumns = []string{
	"Name*",        // A
	"Email*",       // B
	"Phone",        // C
	"Country*",     // D
	"Industry*",    // E
	"Status",       // F
	"Revenue",      // G
	"Notes",        // H
	"Assigned To",  // I
	"Last Contact", // J
}

// ImportResult summarizes a bulk client import
type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// ExportClients writes clients to a spreadsheet, one row per client
func ExportClients(clients []models.Client) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", clientSheet)

	for i, header := range clientColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(clientSheet, cell, header)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(clientSheet, "A1", "J1", headerStyle)
	f.SetColWidth(clientSheet, "A", "J", 20)

	for i, c := range clients {
		row := i + 2
		values := []interface{}{
			c.Name,
			c.Email,
			derefString(c.Phone),
			c.Country,
			c.Industry,
			models.StatusLabel(c.Status),
			c.Revenue,
			derefString(c.Notes),
			assignedToCell(c),
			"",
		}
		if c.LastContact != nil {
			values[9] = c.LastContact.UTC().Format(lastContactLayout)
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(clientSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

// assignedToCell identifies the assignee by email so an import can map it back
func assignedToCell(c models.Client) string {
	if c.AssignedUserID == nil {
		return unassignedLabel
	}
	if c.AssignedUser != nil && c.AssignedUser.Email != "" {
		return c.AssignedUser.Email
	}
	return *c.AssignedUserID
}

// ImportClients creates a client for each data row of the first sheet.
// Rows that fail validation are reported and skipped; the rest are kept.
// "Assigned To" holds a profile email or id, "Unassigned", or nothing for the
// importing user. "Last Contact" is kept when present.
func ImportClients(ctx context.Context, svc *ClientService, actingUserID string, file io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, newValidationError("file", "file is not a valid spreadsheet")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, newValidationError("file", "spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read clients sheet: %w", err)
	}

	assignees := &assigneeResolver{db: svc.DB, known: map[string]string{}}
	result := &ImportResult{Errors: []string{}}
	for i, row := range rows {
		if i == 0 {
			continue
		} // Header
		if isBlankRow(row) {
			continue
		}

		in, err := clientInputFromRow(row)
		if err == nil {
			in.AssignedUserID, err = assignees.resolve(ctx, rowCell(row, 8))
		}
		if err == nil {
			_, err = svc.Create(ctx, in, actingUserID)
		}
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", i+1, UserMessage(err, err.Error())))
			continue
		}
		result.Created++
	}

	return result, nil
}

func rowCell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func clientInputFromRow(row []string) (ClientInput, error) {
	col := func(i int) string { return rowCell(row, i) }

	in := ClientInput{
		Name:     col(0),
		Email:    col(1),
		Country:  col(3),
		Industry: col(4),
		Status:   strings.ToLower(col(5)),
	}
	if phone := col(2); phone != "" {
		in.Phone = &phone
	}
	if revenue := col(6); revenue != "" {
		v, err := strconv.ParseFloat(strings.ReplaceAll(revenue, ",", ""), 64)
		if err != nil {
			return in, newValidationError("revenue", "revenue must be a number")
		}
		in.Revenue = &v
	}
	if notes := col(7); notes != "" {
		in.Notes = &notes
	}
	if lastContact := col(9); lastContact != "" {
		t, err := time.Parse(lastContactLayout, lastContact)
		if err != nil {
			return in, newValidationError("last_contact", "last contact must be a date (YYYY-MM-DD)")
		}
		in.LastContact = &t
	}
	return in, nil
}

// assigneeResolver maps "Assigned To" cells back onto profile ids, once per value
type assigneeResolver struct {
	db    *gorm.DB
	known map[string]string
}

// resolve returns nil for a blank cell so Create falls back to the acting user
func (r *assigneeResolver) resolve(ctx context.Context, value string) (*string, error) {
	if value == "" {
		return nil, nil
	}
	if strings.EqualFold(value, unassignedLabel) {
		none := ""
		return &none, nil
	}

	key := strings.ToLower(value)
	id, ok := r.known[key]
	if !ok {
		var profile models.Profile
		err := r.db.WithContext(ctx).
			Select("id").
			Where("LOWER(email) = ? OR id = ?", key, value).
			First(&profile).Error
		observeOp("profile", "lookup", ignoreNotFound(err))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newValidationError("assigned_to", fmt.Sprintf("unknown user %q", value))
		}
		if err != nil {
			return nil, storeErr("fetch profile", err)
		}
		id = profile.ID
		r.known[key] = id
	}
	return &id, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
