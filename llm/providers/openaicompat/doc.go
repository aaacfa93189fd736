// Package openaicompat provides a shared llm.Transport for every backend that
// speaks the OpenAI Chat Completions wire format.
//
// Backends embed the transport inside a strategy and only override what
// differs:
//
//   - Provider name and default model
//   - Base URL and endpoint path
//   - Custom headers (if any)
//   - Request hooks for backend-specific fields
//
// Usage:
//
//	t := openaicompat.New(openaicompat.Config{
//	    ProviderName:  "deepseek",
//	    BaseURL:       "https://api.deepseek.com",
//	    EndpointPath:  "/chat/completions",
//	    DefaultModel:  cfg.Model,
//	    FallbackModel: "deepseek-chat",
//	}, logger)
//
// The API key is read per request from llm.CredentialFromContext.
package openaicompat
