// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gws

import (
	"context"
	"fmt"
	"net/url"

	"github.com/okrent/forage/pkg/types"
)

// SheetService implements structured spreadsheet access on a session.
type SheetService struct {
	s *Session
}

// NewSheetService wraps a session.
func NewSheetService(s *Session) *SheetService {
	return &SheetService{s: s}
}

type spreadsheetResource struct {
	SpreadsheetID string `json:"spreadsheetId"`
	Properties    struct {
		Title string `json:"title"`
	} `json:"properties"`
	Sheets []struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
		Data []struct {
			RowData []struct {
				Values []struct {
					FormattedValue string `json:"formattedValue"`
				} `json:"values"`
			} `json:"rowData"`
		} `json:"data"`
	} `json:"sheets"`
}

// Spreadsheet fetches every tab with its formatted cell values.
func (sv *SheetService) Spreadsheet(ctx context.Context, spreadsheetID string) (types.SheetData, error) {
	u := fmt.Sprintf("%s/spreadsheets/%s?includeGridData=true&fields=spreadsheetId,properties.title,sheets(properties.title,data.rowData.values.formattedValue)",
		sheetsBaseURL, url.PathEscape(spreadsheetID))
	var res spreadsheetResource
	if err := sv.s.getJSON(ctx, u, "spreadsheet "+spreadsheetID, &res); err != nil {
		return types.SheetData{}, err
	}

	sheet := types.SheetData{
		Title:         res.Properties.Title,
		SpreadsheetID: res.SpreadsheetID,
	}
	for _, sh := range res.Sheets {
		tab := types.SheetTab{Name: sh.Properties.Title}
		for _, grid := range sh.Data {
			for _, row := range grid.RowData {
				cells := make([]string, len(row.Values))
				for i, v := range row.Values {
					cells[i] = v.FormattedValue
				}
				tab.Values = append(tab.Values, trimTrailingEmpty(cells))
			}
		}
		tab.Values = trimTrailingEmptyRows(tab.Values)
		sheet.Tabs = append(sheet.Tabs, tab)
	}
	return sheet, nil
}

func trimTrailingEmpty(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}

func trimTrailingEmptyRows(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && len(rows[end-1]) == 0 {
		end--
	}
	return rows[:end]
}
