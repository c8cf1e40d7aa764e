package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"belleza/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(ctx context.Context) (*http.ServeMux, *httptest.Server, *SheetsService) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	srv, _ := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	s := &SheetsService{
		service:       srv,
		spreadsheetID: "agenda_tid",
		rowCache:      make(map[int64]int),
	}
	return mux, server, s
}

func TestSheetsService_TestConnection(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/agenda_tid/values/Reservas!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"test"}}})
	})
	err := s.TestConnection(ctx)
	if err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/agenda_tid/values/Reservas!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"123"}, {"456"}},
		})
	})
	err := s.WarmUpCache(ctx)
	if err != nil {
		t.Errorf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow(123); !ok || row != 2 {
		t.Errorf("Expected row 2 for ID 123, got %d", row)
	}
}

func TestSheetsService_AppendReservation(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/agenda_tid/values/Reservas!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{
				UpdatedRange: "Reservas!A10:K10",
			},
		})
	})
	reservation := &models.Reservation{ID: 789, Date: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	err := s.AppendReservation(ctx, reservation)
	if err != nil {
		t.Errorf("AppendReservation failed: %v", err)
	}
	if row, _ := s.getCachedRow(789); row != 10 {
		t.Errorf("Expected cached row 10, got %d", row)
	}
}

func TestSheetsService_UpsertReservation_Update(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	s.setCachedRow(123, 2)
	mux.HandleFunc("/v4/spreadsheets/agenda_tid/values/Reservas!A2:K2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	reservation := &models.Reservation{ID: 123, Date: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	err := s.UpsertReservation(ctx, reservation)
	if err != nil {
		t.Errorf("UpsertReservation failed: %v", err)
	}
}

func TestSheetsService_UpsertReservation_Nil(t *testing.T) {
	s := &SheetsService{rowCache: make(map[int64]int)}
	if err := s.UpsertReservation(context.Background(), nil); err == nil {
		t.Error("Expected error for nil reservation")
	}
}

func TestSheetsService_UpdateReservationStatus(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	s.setCachedRow(123, 2)
	mux.HandleFunc("/v4/spreadsheets/agenda_tid/values/Reservas!H2:H2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/agenda_tid/values/Reservas!K2:K2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	err := s.UpdateReservationStatus(ctx, 123, "confirmed")
	if err != nil {
		t.Errorf("UpdateReservationStatus failed: %v", err)
	}
}

func TestSheetsService_FindReservationRow(t *testing.T) {
	ctx := context.Background()

	t.Run("ZeroID", func(t *testing.T) {
		s := &SheetsService{rowCache: make(map[int64]int)}
		_, err := s.FindReservationRow(ctx, 0)
		if err == nil {
			t.Error("Expected error for zero ID")
		}
	})

	t.Run("CachedRow", func(t *testing.T) {
		s := &SheetsService{rowCache: make(map[int64]int)}
		s.setCachedRow(123, 5)
		row, err := s.FindReservationRow(ctx, 123)
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if row != 5 {
			t.Errorf("Expected row 5, got %d", row)
		}
	})

	t.Run("FullScan", func(t *testing.T) {
		mux, server, s := setupMockServer(ctx)
		defer server.Close()
		mux.HandleFunc("/v4/spreadsheets/agenda_tid/values/Reservas!A:A", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(sheets.ValueRange{
				Values: [][]interface{}{{"ID"}, {"999"}},
			})
		})
		row, err := s.FindReservationRow(ctx, 999)
		if err != nil {
			t.Errorf("FindReservationRow failed: %v", err)
		}
		if row != 2 {
			t.Errorf("Expected row 2, got %d", row)
		}
	})
}

func TestSheetsService_GetSheetIDByName(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/agenda_tid", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.Spreadsheet{
			Sheets: []*sheets.Sheet{
				{
					Properties: &sheets.SheetProperties{
						Title:   "Agenda",
						SheetId: 999,
					},
				},
			},
		})
	})
	id, err := s.GetSheetIDByName(ctx, "Agenda")
	if err != nil {
		t.Errorf("GetSheetIDByName failed: %v", err)
	}
	if id != 999 {
		t.Errorf("Expected 999, got %d", id)
	}

	_, err = s.GetSheetIDByName(ctx, "Missing")
	if err == nil {
		t.Error("Expected error for missing sheet")
	}
}

func TestSheetsService_ReplaceReservationsSheet(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/agenda_tid/values/Reservas!A2:Z:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/agenda_tid/values/Reservas!A2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	reservations := []*models.Reservation{{ID: 1, ClientID: "client-1", Date: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}}
	err := s.ReplaceReservationsSheet(ctx, reservations)
	if err != nil {
		t.Errorf("ReplaceReservationsSheet failed: %v", err)
	}
	if row, _ := s.getCachedRow(1); row != 2 {
		t.Errorf("Expected cached row 2, got %d", row)
	}
}

func TestSheetsService_ReplaceAgenda(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/agenda_tid", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.Spreadsheet{
			Sheets: []*sheets.Sheet{
				{
					Properties: &sheets.SheetProperties{
						Title:   "Agenda",
						SheetId: 999,
					},
				},
			},
		})
	})
	mux.HandleFunc("/v4/spreadsheets/agenda_tid/values/Agenda!A:Z:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/agenda_tid/values/Agenda!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/agenda_tid:batchUpdate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.BatchUpdateSpreadsheetResponse{})
	})

	startDate := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(0, 0, 1)
	daily := map[string][]*models.Reservation{
		"2026-09-15": {
			{ID: 1, ServiceName: "Corte de cabello", StartMinute: 600, Status: models.StatusConfirmed},
			{ID: 2, ServiceName: "Tinte completo", StartMinute: 540, Status: models.StatusCancelled},
		},
	}

	err := s.ReplaceAgenda(ctx, startDate, endDate, daily)
	if err != nil {
		t.Errorf("ReplaceAgenda failed: %v", err)
	}
}

func TestSheetsService_ReplaceAgenda_InvalidRange(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/agenda_tid", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.Spreadsheet{
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{Title: "Agenda", SheetId: 999}},
			},
		})
	})

	start := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	err := s.ReplaceAgenda(ctx, start, start.AddDate(0, 0, -2), nil)
	if err == nil {
		t.Error("Expected error for inverted date range")
	}
}
