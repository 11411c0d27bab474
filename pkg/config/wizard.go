package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInputClosed is returned when the wizard runs out of input before finishing.
var ErrInputClosed = errors.New("input closed before configuration finished")

// Wizard prompts for AI provider settings on a line-oriented terminal.
type Wizard struct {
	in  io.ByteReader
	out io.Writer
}

// NewWizard creates a wizard reading answers from in and writing prompts to out.
// Input is consumed one line at a time and nothing past the last answer is
// read, so in can be handed to a child process afterwards.
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	if out == nil {
		out = io.Discard
	}
	br, ok := in.(io.ByteReader)
	if !ok {
		br = &byteReader{r: in}
	}
	return &Wizard{in: br, out: out}
}

// byteReader reads one byte per call from an unbuffered source.
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	for {
		n, err := b.r.Read(b.buf[:])
		if n == 1 {
			return b.buf[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// ConfigureEnvFile asks which provider to use and writes the answers to the
// .env file at path. It reports false when the user chose to skip.
func (w *Wizard) ConfigureEnvFile(path string) (bool, error) {
	w.println("AI Provider Configuration")
	w.println("Choose your AI provider:")
	w.println("  1) Hugging Face (free tier available)")
	w.println("  2) Local AI (LM Studio, Ollama, llama.cpp, any OpenAI-compatible server)")
	w.println("  3) Skip (configure later)")

	for {
		choice, err := w.ask("\nChoice [1-3]: ")
		if err != nil {
			return false, err
		}

		var values map[string]string
		switch choice {
		case "1":
			w.println("\nHugging Face setup")
			w.println("Get a token from https://huggingface.co/settings/tokens")
			token, err := w.ask("Hugging Face API token: ")
			if err != nil {
				return false, err
			}
			if token == "" {
				w.println("A token is required for Hugging Face.")
				continue
			}
			model, err := w.askDefault("Model", DefaultHuggingFaceModel)
			if err != nil {
				return false, err
			}
			values = HuggingFaceEnv(token, model)
		case "2":
			w.println("\nLocal AI setup")
			baseURL, err := w.askDefault("Base URL", DefaultLocalAIBaseURL)
			if err != nil {
				return false, err
			}
			apiKey, err := w.askDefault("API key", DefaultLocalAIKey)
			if err != nil {
				return false, err
			}
			model, err := w.askDefault("Model", DefaultLocalAIModel)
			if err != nil {
				return false, err
			}
			values = LocalAIEnv(baseURL, apiKey, model)
		case "3":
			w.println("Skipping configuration. Run setup again before chatting.")
			return false, nil
		default:
			w.println("Invalid choice, please enter 1, 2, or 3")
			continue
		}

		if err := WriteEnvFile(path, values); err != nil {
			return false, err
		}
		w.printf("Configuration saved to %s\n", path)
		return true, nil
	}
}

// ConfigureSession prepares provider variables for a single run without
// touching disk. It returns nil when getenv already exposes a provider key
// or when the user chose not to configure anything.
func (w *Wizard) ConfigureSession(getenv func(string) string) (map[string]string, error) {
	w.println("AI Provider Setup")
	if getenv != nil {
		if getenv(EnvHuggingFaceKey) != "" {
			w.println("Hugging Face configuration found in environment")
			return nil, nil
		}
		if getenv(EnvLocalAIKey) != "" {
			w.println("Local AI configuration found in environment")
			return nil, nil
		}
	}

	w.println("No AI provider configured!")
	w.println("Options:")
	w.println("  1) Set environment variables manually")
	w.println("  2) Quick Hugging Face setup")
	w.println("  3) Quick Local AI setup")
	w.println("  4) Skip (configure later)")

	for {
		choice, err := w.ask("\nChoose option (1-4): ")
		if err != nil {
			return nil, err
		}
		switch choice {
		case "1":
			w.println("\nManual setup:")
			w.println("For Hugging Face:")
			w.printf("  export %s='hf_your-token'\n", EnvHuggingFaceKey)
			w.println("For Local AI:")
			w.printf("  export %s='%s'\n", EnvLocalAIKey, DefaultLocalAIKey)
			w.printf("  export %s='%s'\n", EnvLocalAIBaseURL, DefaultLocalAIBaseURL)
			return nil, nil
		case "2":
			w.println("\nQuick Hugging Face setup")
			w.println("Get a token from https://huggingface.co/settings/tokens")
			token, err := w.ask("Hugging Face API token: ")
			if err != nil {
				return nil, err
			}
			if token == "" {
				continue
			}
			w.println("Hugging Face configured for this session")
			return map[string]string{EnvHuggingFaceKey: token}, nil
		case "3":
			w.println("\nQuick Local AI setup")
			baseURL, err := w.askDefault("Base URL", DefaultLocalAIBaseURL)
			if err != nil {
				return nil, err
			}
			apiKey, err := w.askDefault("API key", DefaultLocalAIKey)
			if err != nil {
				return nil, err
			}
			w.println("Local AI configured for this session")
			return map[string]string{
				EnvLocalAIBaseURL: baseURL,
				EnvLocalAIKey:     apiKey,
			}, nil
		case "4":
			w.println("Skipping configuration")
			w.println("Note: set the environment variables before the app will work")
			return nil, nil
		default:
			w.println("Invalid choice, please enter 1, 2, 3, or 4")
		}
	}
}

func (w *Wizard) ask(prompt string) (string, error) {
	_, _ = fmt.Fprint(w.out, prompt)
	var line []byte
	for {
		c, err := w.in.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return strings.TrimSpace(string(line)), nil
			}
			if errors.Is(err, io.EOF) {
				return "", ErrInputClosed
			}
			return "", fmt.Errorf("read answer: %w", err)
		}
		if c == '\n' {
			return strings.TrimSpace(string(line)), nil
		}
		line = append(line, c)
	}
}

func (w *Wizard) askDefault(label, def string) (string, error) {
	answer, err := w.ask(fmt.Sprintf("%s (default: %s): ", label, def))
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (w *Wizard) println(s string) {
	_, _ = fmt.Fprintln(w.out, s)
}

func (w *Wizard) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format, args...)
}
