// Package dto contains Data Transfer Objects for HTTP requests and responses.
//
// DTOs are separate from domain entities to:
//   - Control what data is exposed in the API (a question's answer is never
//     sent before the round closes)
//   - Handle JSON serialization/deserialization
//   - Add validation tags for request binding
//
// Naming convention:
//   - Request types: <Action><Resource>Request (e.g., CreateSessionRequest)
//   - Response types: <Resource>Response (e.g., SessionResponse)
//   - Converters: <Resource>From<Source> (e.g., SessionFromView)
package dto
