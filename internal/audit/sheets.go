package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/api/sheets/v4"
)

const sheetName = "Appointments"

var sheetHeader = []interface{}{"Timestamp", "User Request", "Action", "Appointment DateTime", "Status"}

// SheetsLogger appends entries as rows of a Google spreadsheet.
type SheetsLogger struct {
	svc           *sheets.Service
	spreadsheetID string

	mu    sync.Mutex
	ready bool
}

// NewSheetsLogger creates a logger for the given spreadsheet.
func NewSheetsLogger(svc *sheets.Service, spreadsheetID string) (*SheetsLogger, error) {
	if svc == nil {
		return nil, fmt.Errorf("audit: sheets service is required")
	}
	if spreadsheetID == "" {
		return nil, fmt.Errorf("audit: spreadsheet id is required")
	}
	return &SheetsLogger{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (s *SheetsLogger) LogAction(ctx context.Context, entry Entry) error {
	if err := s.ensureSheet(ctx); err != nil {
		return err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	row := &sheets.ValueRange{Values: [][]interface{}{{
		entry.Timestamp.UTC().Format(time.RFC3339),
		entry.UserRequest,
		string(entry.Action),
		entry.AppointmentDateTime,
		string(entry.Status),
	}}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, sheetName+"!A:E", row).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("audit: append row: %w", err)
	}
	return nil
}

// ensureSheet creates the Appointments sheet with a header row the first time
// it is missing. Success is cached for the life of the logger.
func (s *SheetsLogger) ensureSheet(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	doc, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("audit: get spreadsheet: %w", err)
	}
	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == sheetName {
			s.ready = true
			return nil
		}
	}

	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("audit: add sheet: %w", err)
	}

	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, sheetName+"!A1:E1", &sheets.ValueRange{
		Values: [][]interface{}{sheetHeader},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("audit: write header: %w", err)
	}

	s.ready = true
	return nil
}
