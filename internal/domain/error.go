package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrDecodeReference    = errors.New("external reference is not decodable")
	ErrUnknownPlan        = errors.New("plan is not in the catalog")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is not active")
	ErrExpiredEntitlement = errors.New("entitlement window has expired")
)
