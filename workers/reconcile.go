package workers

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
)

// ReportUploader stores a reconciliation report and returns where it went.
type ReportUploader interface {
	PutJSON(ctx context.Context, key string, v interface{}) (string, error)
}

// Drift is a profile whose total_xp disagrees with the sum of its ledger entries.
type Drift struct {
	UserID   string `json:"user_id"`
	StoredXP int64  `json:"stored_xp"`
	LedgerXP int64  `json:"ledger_xp"`
	Repaired bool   `json:"repaired"`
}

func (d Drift) Delta() int64 {
	return d.LedgerXP - d.StoredXP
}

type ReconcileReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Profiles   int64     `json:"profiles"`
	Drifts     []Drift   `json:"drifts"`
	ReportURL  string    `json:"report_url,omitempty"`
}

// ReconcileWorker compares every profile's total_xp with SUM(xp_logs.amount).
type ReconcileWorker struct {
	db       *gorm.DB
	repair   bool
	uploader ReportUploader
	log      *logger.Logger
	now      func() time.Time
}

func NewReconcileWorker(db *gorm.DB, repair bool, uploader ReportUploader, log *logger.Logger) *ReconcileWorker {
	return &ReconcileWorker{
		db:       db,
		repair:   repair,
		uploader: uploader,
		log:      log.With("component", "ReconcileWorker"),
		now:      time.Now,
	}
}

// Run scans for drift, repairs it with a relative correction when enabled, and uploads a
// report when drift was found and an uploader is set.
func (w *ReconcileWorker) Run(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{StartedAt: w.now().UTC(), Drifts: []Drift{}}
	db := w.db.WithContext(ctx)

	if err := db.Model(&models.Profile{}).Count(&report.Profiles).Error; err != nil {
		return report, fmt.Errorf("count profiles: %w", err)
	}

	var rows []Drift
	if err := db.Table("profiles AS p").
		Select("p.user_id AS user_id, p.total_xp AS stored_xp, COALESCE(SUM(l.amount), 0) AS ledger_xp").
		Joins("LEFT JOIN xp_logs AS l ON l.user_id = p.user_id").
		Where("p.deleted_at IS NULL").
		Group("p.user_id, p.total_xp").
		Having("p.total_xp <> COALESCE(SUM(l.amount), 0)").
		Order("p.user_id").
		Scan(&rows).Error; err != nil {
		return report, fmt.Errorf("scan drift: %w", err)
	}

	for _, d := range rows {
		w.log.Warn("⚠️ ledger drift", "user_id", d.UserID, "stored_xp", d.StoredXP, "ledger_xp", d.LedgerXP)
		if w.repair {
			// Relative so awards landing meanwhile are kept.
			if err := db.Model(&models.Profile{}).
				Where("user_id = ?", d.UserID).
				Update("total_xp", gorm.Expr("total_xp + ?", d.Delta())).Error; err != nil {
				w.log.Error("drift repair failed", "user_id", d.UserID, "error", err)
			} else {
				d.Repaired = true
			}
		}
		report.Drifts = append(report.Drifts, d)
	}
	report.FinishedAt = w.now().UTC()

	if len(report.Drifts) > 0 && w.uploader != nil {
		key := fmt.Sprintf("reconcile/%s.json", report.StartedAt.Format("20060102T150405Z"))
		url, err := w.uploader.PutJSON(ctx, key, report)
		if err != nil {
			w.log.Warn("reconcile report upload failed", "error", err)
		} else {
			report.ReportURL = url
		}
	}

	w.log.Info("🧾 ledger reconciled", "profiles", report.Profiles, "drifts", len(report.Drifts), "repair", w.repair)
	return report, nil
}
