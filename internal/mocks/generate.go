package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Sink --dir ../domain/record --output domain/record --outpkg recordmock --filename sink_mock.go
