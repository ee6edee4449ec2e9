package tradepublisherv1

import "context"

// TradePublisher defines the interface for publishing executed trades to
// the event stream consumed by the ledger and broadcast collaborators.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=tradepublisherv1_mock
type TradePublisher interface {
	// PublishTrade publishes a single trade event.
	PublishTrade(ctx context.Context, event *TradeEvent) error
}
