package member

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"membership-service/internal/store"

	"github.com/xuri/excelize/v2"
)

const (
	RosterSheet       = "Members"
	RosterFilename    = "members_roster.xlsx"
	RosterContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var rosterHeaders = []string{
	"Name", "BITS ID", "Email", "Mobile", "Date of Birth", "Hostel", "Room No",
	"Department", "Clubs", "Approved", "Registered At",
}

// ExportRoster renders every member, newest first, as an xlsx workbook.
func (s *service) ExportRoster(ctx context.Context) ([]byte, error) {
	members, err := s.members.FindMany(ctx, nil, store.Desc("created_at"))
	if err != nil {
		return nil, err
	}
	return renderRoster(members)
}

func renderRoster(members []Member) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(RosterSheet)
	if err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	for i, h := range rosterHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(RosterSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for rIdx, m := range members {
		row := rIdx + 2
		values := []any{
			m.Name,
			m.InstitutionID,
			m.Email,
			m.Mobile,
			m.DateOfBirth.Format(time.DateOnly),
			m.Hostel,
			m.RoomNo,
			m.Department,
			strings.Join(m.Clubs, ", "),
			approvedLabel(m.Approved),
			m.CreatedAt.Format(time.DateTime),
		}
		cell := fmt.Sprintf("A%d", row)
		if err := f.SetSheetRow(RosterSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func approvedLabel(approved bool) string {
	if approved {
		return "yes"
	}
	return "no"
}
