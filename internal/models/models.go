package models

import "time"

// MetricRow is one normalized line of an uploaded export. Absent columns
// leave the zero value.
type MetricRow struct {
	Date        string  `json:"date"`
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Spend       float64 `json:"spend"`
	Conversions float64 `json:"conversions"`
	Platform    string  `json:"platform"`
	Source      string  `json:"source"`
	Channel     string  `json:"channel"`
	Campaign    string  `json:"campaign"`
	Account     string  `json:"account"`
}

type Summary struct {
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Spend       float64 `json:"spend"`
	Conversions float64 `json:"conversions"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
	CPM         float64 `json:"cpm"`
}

type Bucket struct {
	Label string  `json:"label"`
	Spend float64 `json:"spend"`
}

// Breakdown is spend grouped by a single dimension. Dimension is empty when
// rows were grouped by date because no dimension column was populated.
type Breakdown struct {
	Dimension string   `json:"dimension"`
	Buckets   []Bucket `json:"buckets"`
}

type SeriesPoint struct {
	Date   string  `json:"date"`
	Spend  float64 `json:"spend"`
	Clicks float64 `json:"clicks"`
}

type TableRow struct {
	MetricRow
	CTR float64 `json:"ctr"`
	CPC float64 `json:"cpc"`
	CPM float64 `json:"cpm"`
}

type ImpressionsKind string

const (
	KindImpressions ImpressionsKind = "impressions"
	KindViews       ImpressionsKind = "views"
)

// Dataset is the row set produced by one ingestion. It replaces the
// session's previous dataset as a whole and is never edited afterwards.
type Dataset struct {
	ID               string          `json:"id"`
	Session          string          `json:"session"`
	FileName         string          `json:"file_name"`
	Generation       uint64          `json:"generation"`
	Delimiter        string          `json:"delimiter"`
	ImpressionsLabel string          `json:"impressions_label"`
	ImpressionsKind  ImpressionsKind `json:"impressions_kind"`
	Headers          []string        `json:"headers"`
	Rows             []MetricRow     `json:"rows"`
	LoadedAt         time.Time       `json:"loaded_at"`
}

// Info is a Dataset without its rows.
type Info struct {
	ID               string          `json:"id"`
	Session          string          `json:"session"`
	FileName         string          `json:"file_name"`
	Generation       uint64          `json:"generation"`
	Delimiter        string          `json:"delimiter"`
	ImpressionsLabel string          `json:"impressions_label"`
	ImpressionsKind  ImpressionsKind `json:"impressions_kind"`
	Headers          []string        `json:"headers"`
	RowCount         int             `json:"row_count"`
	LoadedAt         time.Time       `json:"loaded_at"`
}

func (d *Dataset) Info() Info {
	return Info{
		ID:               d.ID,
		Session:          d.Session,
		FileName:         d.FileName,
		Generation:       d.Generation,
		Delimiter:        d.Delimiter,
		ImpressionsLabel: d.ImpressionsLabel,
		ImpressionsKind:  d.ImpressionsKind,
		Headers:          d.Headers,
		RowCount:         len(d.Rows),
		LoadedAt:         d.LoadedAt,
	}
}
