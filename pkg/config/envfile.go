package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// SampleEnv is the commented template written to .env.example by the installer.
const SampleEnv = `# MyCodeHelper configuration
# Copy this file to .env and fill in the provider you want to use.

# Hugging Face (free tier available)
# Get your token from https://huggingface.co/settings/tokens
# HUGGING_FACE_API_KEY=your-hugging-face-token
# HUGGING_FACE_MODEL=microsoft/DialoGPT-large

# Local AI (LM Studio, Ollama, llama.cpp or any OpenAI-compatible server)
# LOCAL_AI_API_KEY=local-key
# LOCAL_AI_BASE_URL=http://localhost:8080
# LOCAL_AI_MODEL=llama-3.1-8b

# Default provider: hugging-face-api-key or local-ai-api-key
# MYCODEHELPER_DEFAULT_PROVIDER=local-ai-api-key

# Generation settings
MYCODEHELPER_MAX_TOKENS=4096
MYCODEHELPER_TEMPERATURE=0.7
`

// ReadEnvFile parses a .env file into a map.
func ReadEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return values, nil
}

// WriteEnvFile writes values to path in .env format, replacing any existing file.
func WriteEnvFile(path string, values map[string]string) error {
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteSampleEnv writes SampleEnv to path unless the file already exists.
// It reports whether a file was written.
func WriteSampleEnv(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(SampleEnv), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// HuggingFaceEnv returns the variables that select Hugging Face with the given token and model.
func HuggingFaceEnv(apiKey, model string) map[string]string {
	if model == "" {
		model = DefaultHuggingFaceModel
	}
	return map[string]string{
		EnvHuggingFaceKey:   apiKey,
		EnvHuggingFaceModel: model,
		EnvDefaultProvider:  ProviderHuggingFace,
	}
}

// LocalAIEnv returns the variables that select a local OpenAI-compatible server.
func LocalAIEnv(baseURL, apiKey, model string) map[string]string {
	if baseURL == "" {
		baseURL = DefaultLocalAIBaseURL
	}
	if apiKey == "" {
		apiKey = DefaultLocalAIKey
	}
	if model == "" {
		model = DefaultLocalAIModel
	}
	return map[string]string{
		EnvLocalAIBaseURL:  baseURL,
		EnvLocalAIKey:      apiKey,
		EnvLocalAIModel:    model,
		EnvDefaultProvider: ProviderLocalAI,
	}
}
