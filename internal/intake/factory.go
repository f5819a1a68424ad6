package intake

import (
	"context"
	"fmt"

	"funrun-registration/internal/config"
	"funrun-registration/internal/intake/gas"
	"funrun-registration/internal/sheets"
)

func NewSink(ctx context.Context, cfg config.Config) (Sink, error) {
	switch cfg.IntakeSink {
	case config.SinkGAS:
		return gas.New(cfg.GASURL, cfg.DispatchTimeout), nil
	case config.SinkSheets:
		return sheets.New(ctx, cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID, cfg.DriveFolderID)
	default:
		return nil, fmt.Errorf("unknown intake sink: %s", cfg.IntakeSink)
	}
}
