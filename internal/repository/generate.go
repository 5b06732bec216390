package repository

//go:generate go run go.uber.org/mock/mockgen -destination=gomock/mocks.go -package=gomock . UserRepository,RoleRepository,LocalCredentialRepository
