package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// importedMarker is written into a row's status cell once its video is in
// the database.
const importedMarker = "Imported"

// ImportReport summarizes one spreadsheet import.
type ImportReport struct {
	Rows     int
	Imported int
	Skipped  int
	Failed   int
	Errors   []string
}

// sheetRow is one video cell of a data row, resolved to its columns. A data
// row carries one project and one or more video URL columns, so it can yield
// several of these.
type sheetRow struct {
	rowIndex int // 1-based spreadsheet row
	project  string
	topic    string
	videoURL string
	videoID  string
}

// Importer reads the project spreadsheet and creates projects, channels and
// videos. Rows already marked as imported are skipped; each processed row is
// marked in the sheet and the file saved back, so a re-run never duplicates
// work.
type Importer struct {
	store    *Store
	metadata MetadataService
	ui       UIManager
	log      *Logger
}

func NewImporter(store *Store, metadata MetadataService, ui UIManager, log *Logger) *Importer {
	return &Importer{store: store, metadata: metadata, ui: ui, log: log}
}

// Import processes one spreadsheet file.
func (im *Importer) Import(ctx context.Context, path string) (*ImportReport, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return &ImportReport{}, nil
	}

	cols, err := detectColumns(rows[0])
	if err != nil {
		return nil, err
	}

	report := &ImportReport{}
	var pending []sheetRow
	// A row is only marked imported once every one of its video cells made
	// it into the database, so a partial row is retried on the next run.
	rowTotal := make(map[int]int)
	rowDone := make(map[int]int)
	rowDirty := make(map[int]bool)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if cell(row, cols.status) == importedMarker {
			report.Rows++
			report.Skipped++
			continue
		}
		project := strings.TrimSpace(cell(row, cols.project))
		var urls []string
		for _, vc := range cols.videos {
			if url := strings.TrimSpace(cell(row, vc)); url != "" {
				urls = append(urls, url)
			}
		}
		if project == "" && len(urls) == 0 {
			continue // blank row
		}
		report.Rows++

		if project == "" || len(urls) == 0 {
			report.Failed++
			report.Errors = append(report.Errors,
				fmt.Sprintf("row %d: missing project name or video URL", i+1))
			continue
		}
		for _, url := range urls {
			videoID, idErr := VideoIDFromURL(url)
			if idErr != nil {
				report.Failed++
				report.Errors = append(report.Errors,
					fmt.Sprintf("row %d: %v", i+1, idErr))
				rowDirty[i+1] = true
				continue
			}
			rowTotal[i+1]++
			pending = append(pending, sheetRow{
				rowIndex: i + 1,
				project:  project,
				topic:    strings.TrimSpace(cell(row, cols.topic)),
				videoURL: url,
				videoID:  videoID,
			})
		}
	}
	if len(pending) == 0 {
		return report, nil
	}

	metadata, err := im.fetchMetadata(ctx, pending)
	if err != nil {
		return nil, err
	}

	bar := im.ui.NewProgressBar(len(pending), "importing")
	defer bar.Finish()

	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := im.importRow(ctx, row, metadata); err != nil {
			im.log.Warn("row import failed", "row", row.rowIndex, "video", row.videoID, "error", err)
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", row.rowIndex, err))
			rowDirty[row.rowIndex] = true
			bar.Add(1)
			continue
		}
		report.Imported++
		rowDone[row.rowIndex]++
		bar.Add(1)

		if rowDirty[row.rowIndex] || rowDone[row.rowIndex] != rowTotal[row.rowIndex] {
			continue
		}
		cellRef, err := excelize.CoordinatesToCellName(cols.status+1, row.rowIndex)
		if err != nil {
			return report, err
		}
		if err := f.SetCellValue(sheet, cellRef, importedMarker); err != nil {
			return report, fmt.Errorf("marking row %d: %w", row.rowIndex, err)
		}
	}

	if err := f.Save(); err != nil {
		return report, fmt.Errorf("saving spreadsheet: %w", err)
	}
	return report, nil
}

// fetchMetadata batches one metadata call over all new video ids.
func (im *Importer) fetchMetadata(ctx context.Context, pending []sheetRow) (map[string]VideoMetadata, error) {
	var ids []string
	seen := make(map[string]bool, len(pending))
	for _, row := range pending {
		if seen[row.videoID] {
			continue
		}
		seen[row.videoID] = true
		existing, err := im.store.VideoByYoutubeID(row.videoID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			ids = append(ids, row.videoID)
		}
	}

	out := make(map[string]VideoMetadata, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	fetched, err := im.metadata.Videos(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching video metadata: %w", err)
	}
	for _, md := range fetched {
		out[md.YoutubeID] = md
	}
	return out, nil
}

func (im *Importer) importRow(ctx context.Context, row sheetRow, metadata map[string]VideoMetadata) error {
	project, err := im.store.EnsureProject(row.project, row.topic)
	if err != nil {
		return fmt.Errorf("ensuring project: %w", err)
	}

	existing, err := im.store.VideoByYoutubeID(row.videoID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.ProjectID == nil || *existing.ProjectID != project.ID {
			existing.ProjectID = &project.ID
			if err := im.store.Save(existing); err != nil {
				return fmt.Errorf("relinking video: %w", err)
			}
		}
		return nil
	}

	md, ok := metadata[row.videoID]
	if !ok {
		return fmt.Errorf("video %s not found on YouTube", row.videoID)
	}

	channel, err := im.ensureChannel(ctx, md.ChannelID)
	if err != nil {
		return err
	}

	video := &Video{
		YoutubeID:   md.YoutubeID,
		Title:       md.Title,
		Description: md.Description,
		ViewCount:   md.ViewCount,
		LikeCount:   md.LikeCount,
		Duration:    md.Duration,
		PublishedAt: md.PublishedAt,
		ProjectID:   &project.ID,
		ChannelID:   channel.ID,
	}
	if err := im.store.Create(video); err != nil {
		return fmt.Errorf("saving video: %w", err)
	}
	im.ui.Verbose("  imported %s (%s)\n", md.Title, md.YoutubeID)
	return nil
}

// ensureChannel creates the channel on first reference.
func (im *Importer) ensureChannel(ctx context.Context, youtubeID string) (*Channel, error) {
	if youtubeID == "" {
		return nil, fmt.Errorf("video metadata carries no channel id")
	}
	existing, err := im.store.ChannelByYoutubeID(youtubeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	fetched, err := im.metadata.Channels(ctx, []string{youtubeID})
	if err != nil {
		return nil, fmt.Errorf("fetching channel metadata: %w", err)
	}
	if len(fetched) == 0 {
		return nil, fmt.Errorf("channel %s not found on YouTube", youtubeID)
	}
	md := fetched[0]

	channel := &Channel{
		YoutubeID:       md.YoutubeID,
		Title:           md.Title,
		SubscriberCount: md.SubscriberCount,
		VideoCount:      md.VideoCount,
		ViewCount:       md.ViewCount,
	}
	if err := im.store.Create(channel); err != nil {
		return nil, fmt.Errorf("saving channel: %w", err)
	}
	return channel, nil
}

// columnIndexes locates the spreadsheet's columns by header text. A sheet
// may carry several video URL columns; every one of them is collected.
type columnIndexes struct {
	project int
	topic   int
	videos  []int
	status  int
}

// detectColumns matches header cells case-insensitively. The status column
// is appended after the last header when the sheet doesn't carry one.
func detectColumns(header []string) (columnIndexes, error) {
	cols := columnIndexes{project: -1, topic: -1, status: -1}
	for i, h := range header {
		switch key := strings.ToLower(strings.TrimSpace(h)); {
		case key == "project" || key == "project name":
			cols.project = i
		case key == "topic" || key == "subject":
			cols.topic = i
		case strings.Contains(key, "url") || strings.Contains(key, "video"):
			cols.videos = append(cols.videos, i)
		case key == "status" || key == "imported":
			cols.status = i
		}
	}
	if cols.project == -1 || len(cols.videos) == 0 {
		return cols, fmt.Errorf("spreadsheet needs 'project' and video URL columns in the header row")
	}
	if cols.status == -1 {
		cols.status = len(header)
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
