// Package model defines the domain types shared across botstream components:
// classified stream messages, bot configurations, and bot runtime statuses.
package model
