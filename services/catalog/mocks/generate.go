package mocks

//go:generate go run go.uber.org/mock/mockgen -destination=mock_api.go -package=mocks reelstream/services/catalog API
