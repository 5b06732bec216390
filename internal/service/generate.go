package service

//go:generate go run go.uber.org/mock/mockgen -destination=mocks_test.go -package=service . AccountNotifier
