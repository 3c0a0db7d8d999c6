package mocks

//go:generate mockgen -destination=./mock_gateway.go -package=mocks spot-trading-engine/internal/engine Gateway
//go:generate mockgen -destination=./mock_notifier.go -package=mocks spot-trading-engine/internal/engine Notifier
