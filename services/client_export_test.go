package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"crm_dashboard_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportClients(t *testing.T) {
	contact := time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)
	phone := "+34 600 111 222"
	assignee := "u1"
	clients := []models.Client{
		{
			Name:           "Acme Corp",
			Email:          "hello@acme.com",
			Phone:          &phone,
			Country:        "Spain",
			Industry:       "Retail",
			Status:         models.ClientStatusActive,
			Revenue:        1500,
			AssignedUserID: &assignee,
			AssignedUser:   &models.ProfileRef{ID: assignee, Name: "Ada", Email: "ada@example.com"},
			LastContact:    &contact,
		},
		{Name: "Globex", Email: "sales@globex.io", Country: "France", Industry: "Energy", Status: models.ClientStatusPending},
	}

	buf, err := ExportClients(clients)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(clientSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Name*", rows[0][0])
	assert.Equal(t, "Acme Corp", rows[1][0])
	assert.Equal(t, phone, rows[1][2])
	assert.Equal(t, "Active", rows[1][5])
	assert.Equal(t, "1500", rows[1][6])
	assert.Equal(t, "ada@example.com", rows[1][8])
	assert.Equal(t, "2026-04-02", rows[1][9])
	assert.Equal(t, "Globex", rows[2][0])
	assert.Equal(t, "Unassigned", rows[2][8])
}

func buildImportFile(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, header := range clientColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Sheet1", cell, header)
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue("Sheet1", cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportClients(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createProfile(t, db, "Ada")
	pub := &recordingPublisher{}
	svc := NewClientService(db, nil, pub)

	file := buildImportFile(t, [][]interface{}{
		{"Acme Corp", "hello@acme.com", "600111222", "Spain", "Retail", "Active", "1,500", "Key account"},
		{"X", "bad", "", "Spain", "Retail"},
		{},
		{"Globex", "sales@globex.io", "", "France", "Energy", "", "abc"},
		{"Initech", "bill@initech.com", "", "USA", "Software"},
	})

	result, err := ImportClients(ctx, svc, user.ID, file)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.True(t, strings.HasPrefix(result.Errors[0], "row 3:"))
	assert.True(t, strings.HasPrefix(result.Errors[1], "row 5:"))
	assert.Contains(t, result.Errors[1], "revenue")

	clients, err := svc.List(ctx, ClientQuery{})
	require.NoError(t, err)
	require.Len(t, clients, 2)

	var acme *models.Client
	for i := range clients {
		if clients[i].Name == "Acme Corp" {
			acme = &clients[i]
		}
	}
	require.NotNil(t, acme)
	assert.Equal(t, models.ClientStatusActive, acme.Status)
	assert.Equal(t, 1500.0, acme.Revenue)
	require.NotNil(t, acme.AssignedUserID)
	assert.Equal(t, user.ID, *acme.AssignedUserID)

	// Every created row goes through the repository and is published
	assert.Len(t, pub.Events(), 2)

	_, err = ImportClients(ctx, svc, user.ID, strings.NewReader("not a spreadsheet"))
	assert.True(t, IsValidationError(err))
}

func TestImportClients_RejectsNonFiniteRevenue(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createProfile(t, db, "Ada")
	svc := NewClientService(db, nil, nil)

	file := buildImportFile(t, [][]interface{}{
		{"Acme Corp", "hello@acme.com", "", "Spain", "Retail", "", "Inf"},
		{"Globex", "sales@globex.io", "", "France", "Energy", "", "NaN"},
	})

	result, err := ImportClients(ctx, svc, user.ID, file)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	require.Len(t, result.Errors, 2)
	for _, msg := range result.Errors {
		assert.Contains(t, msg, "revenue")
	}

	var count int64
	require.NoError(t, db.Model(&models.Client{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestExportImportClients_KeepsAssigneeAndLastContact(t *testing.T) {
	source := setupTestDB(t)
	ctx := context.Background()
	owner := createProfile(t, source, "Grace")
	contact := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)

	createClient(t, source, models.Client{Name: "Acme Corp", AssignedUserID: &owner.ID, LastContact: &contact})
	createClient(t, source, models.Client{Name: "Globex"})

	clients, err := NewClientService(source, nil, nil).List(ctx, ClientQuery{})
	require.NoError(t, err)
	buf, err := ExportClients(clients)
	require.NoError(t, err)

	// Import into a store where the owner exists under the same email
	target := setupTestDB(t)
	importer := createProfile(t, target, "Ada")
	sameOwner := &models.Profile{Name: "Grace", Email: strings.ToUpper(owner.Email)}
	require.NoError(t, target.Create(sameOwner).Error)

	svc := NewClientService(target, nil, nil)
	result, err := ImportClients(ctx, svc, importer.ID, buf)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	assert.Equal(t, 2, result.Created)

	imported, err := svc.List(ctx, ClientQuery{SkipEnrich: true})
	require.NoError(t, err)
	byName := map[string]models.Client{}
	for _, c := range imported {
		byName[c.Name] = c
	}

	acme := byName["Acme Corp"]
	require.NotNil(t, acme.AssignedUserID)
	assert.Equal(t, sameOwner.ID, *acme.AssignedUserID)
	require.NotNil(t, acme.LastContact)
	assert.Equal(t, "2025-11-20", acme.LastContact.UTC().Format("2006-01-02"))

	globex := byName["Globex"]
	assert.Nil(t, globex.AssignedUserID, "unassigned clients stay unassigned")
}

func TestImportClients_AssignedToColumn(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	importer := createProfile(t, db, "Ada")
	owner := createProfile(t, db, "Grace")
	svc := NewClientService(db, nil, nil)

	file := buildImportFile(t, [][]interface{}{
		{"Acme Corp", "hello@acme.com", "", "Spain", "Retail", "", "", "", owner.Email},
		{"Globex", "sales@globex.io", "", "France", "Energy", "", "", "", owner.ID},
		{"Initech", "bill@initech.com", "", "USA", "Software", "", "", "", "unassigned"},
		{"Umbrella", "info@umbrella.com", "", "UK", "Pharma", "", "", "", "nobody@example.com"},
		{"Hooli", "gavin@hooli.xyz", "", "USA", "Software", "", "", "", "", "yesterday"},
		{"Soylent", "hi@soylent.com", "", "USA", "Food"},
	})

	result, err := ImportClients(ctx, svc, importer.ID, file)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Created)
	require.Len(t, result.Errors, 2)
	assert.True(t, strings.HasPrefix(result.Errors[0], "row 5:"))
	assert.Contains(t, result.Errors[0], "nobody@example.com")
	assert.True(t, strings.HasPrefix(result.Errors[1], "row 6:"))
	assert.Contains(t, result.Errors[1], "last contact")

	clients, err := svc.List(ctx, ClientQuery{SkipEnrich: true})
	require.NoError(t, err)
	assignees := map[string]string{}
	for _, c := range clients {
		assignees[c.Name] = derefString(c.AssignedUserID)
	}
	assert.Equal(t, owner.ID, assignees["Acme Corp"])
	assert.Equal(t, owner.ID, assignees["Globex"])
	assert.Equal(t, "", assignees["Initech"])
	assert.Equal(t, importer.ID, assignees["Soylent"])
}
