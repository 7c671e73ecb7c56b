package analytics

import (
	"context"
	"fmt"

	"dholratri-tickets/internal/models"

	"github.com/uptrace/bun"
)

// Service computes the admin dashboard figures straight from purchases and tickets.
type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db: db}
}

// GetAdminStats aggregates counts by status, check-ins and approved revenue.
func (s *Service) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	stats := &models.AdminStats{
		PurchasesByStatus: map[models.PurchaseStatus]int{
			models.StatusPaymentPending: 0,
			models.StatusBooked:         0,
			models.StatusApproved:       0,
			models.StatusRejected:       0,
		},
	}

	type statusCount struct {
		Status models.PurchaseStatus `bun:"status"`
		Count  int                   `bun:"count"`
	}
	var counts []statusCount
	err := s.db.NewSelect().
		Model((*models.Purchase)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("status").
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("count purchases by status: %w", err)
	}
	for _, c := range counts {
		stats.PurchasesByStatus[c.Status] = c.Count
	}

	stats.TicketsIssued, err = s.db.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("status = ?", models.StatusApproved).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count issued tickets: %w", err)
	}

	stats.TicketsCheckedIn, err = s.db.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("checked_in = ?", true).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count checked-in tickets: %w", err)
	}

	err = s.db.NewSelect().
		Model((*models.Purchase)(nil)).
		ColumnExpr("COALESCE(SUM(final_amount_paid), 0)").
		Where("status = ?", models.StatusApproved).
		Scan(ctx, &stats.ApprovedRevenue)
	if err != nil {
		return nil, fmt.Errorf("sum approved revenue: %w", err)
	}

	if stats.Tiers, err = s.tierStats(ctx); err != nil {
		return nil, err
	}
	if stats.DailySales, err = s.dailySales(ctx); err != nil {
		return nil, err
	}
	if stats.Coupons, err = s.couponUsage(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) tierStats(ctx context.Context) ([]models.TierStats, error) {
	tiers := []models.TierStats{}
	err := s.db.NewSelect().
		Model((*models.Purchase)(nil)).
		ColumnExpr("ticket_type").
		ColumnExpr("COUNT(*) AS purchases").
		ColumnExpr("COALESCE(SUM(ticket_count), 0) AS tickets").
		ColumnExpr("COALESCE(SUM(final_amount_paid), 0) AS revenue").
		Where("status = ?", models.StatusApproved).
		GroupExpr("ticket_type").
		OrderExpr("ticket_type").
		Scan(ctx, &tiers)
	if err != nil {
		return nil, fmt.Errorf("tier stats: %w", err)
	}
	return tiers, nil
}

func (s *Service) dailySales(ctx context.Context) ([]models.DailySales, error) {
	days := []models.DailySales{}
	err := s.db.NewSelect().
		Model((*models.Purchase)(nil)).
		ColumnExpr("CAST(DATE(created_at) AS TEXT) AS sales_date").
		ColumnExpr("COALESCE(SUM(final_amount_paid), 0) AS revenue").
		ColumnExpr("COALESCE(SUM(ticket_count), 0) AS tickets").
		Where("status = ?", models.StatusApproved).
		GroupExpr("DATE(created_at)").
		OrderExpr("DATE(created_at)").
		Scan(ctx, &days)
	if err != nil {
		return nil, fmt.Errorf("daily sales: %w", err)
	}
	return days, nil
}

// couponUsage counts coupon redemptions on purchases that were not rejected.
func (s *Service) couponUsage(ctx context.Context) ([]models.CouponUsage, error) {
	usage := []models.CouponUsage{}
	err := s.db.NewSelect().
		Model((*models.Purchase)(nil)).
		ColumnExpr("applied_coupon AS code").
		ColumnExpr("COUNT(*) AS usage_count").
		ColumnExpr("COALESCE(SUM(discount_amount), 0) AS total_discount").
		Where("applied_coupon IS NOT NULL").
		Where("status != ?", models.StatusRejected).
		GroupExpr("applied_coupon").
		OrderExpr("applied_coupon").
		Scan(ctx, &usage)
	if err != nil {
		return nil, fmt.Errorf("coupon usage: %w", err)
	}
	return usage, nil
}
