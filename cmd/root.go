// Package cmd wires the CLI surface: flag parsing, input resolution
// and the top-level run sequence. All the interesting behavior lives
// in the internal packages; this layer is glue.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/aicat-dev/aicat/internal/app"
	"github.com/aicat-dev/aicat/internal/chat"
	"github.com/aicat-dev/aicat/internal/config"
	"github.com/aicat-dev/aicat/internal/logging"
	"github.com/aicat-dev/aicat/internal/provider"
)

// NonInteractiveEnvVar forces non-interactive behavior even when
// stdin is a terminal, mainly for scripts and tests.
const NonInteractiveEnvVar = "AICAT_NONINTERACTIVE"

// selfTestEnvVar short-circuits the whole pipeline with a fixed
// echo, letting end-to-end shell tests run without any provider.
const selfTestEnvVar = "AICAT_TEST"

var (
	extendConversation bool
	repeatInput        bool
	conversationName   string

	apiFlag         string
	modelFlag       string
	temperatureFlag float64
	charLimitFlag   int
	contextPatterns []string

	debugMode  bool
	prettyFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "aicat [template-or-input] [input]",
	Short: "Pipe text through large-language-model chat APIs",
	Long: `aicat puts a brain behind cat: it reads text from stdin or its
arguments, wraps it into a chat prompt built from a stored template,
sends it to the configured provider and writes the reply to stdout.

Examples:
  aicat "say hi"                         ask directly
  aicat review "focus on naming" < f.go  use the "review" template
  git diff | aicat "summarize"           pipe data in
  aicat -e "use a more formal tone"      extend the last conversation
  aicat "explain this" -c '**/*.md'      inject files as context`,
	Args:         cobra.MaximumNArgs(2),
	SilenceUsage: true,
	RunE:         runRoot,
}

// GetRootCommand returns the root command with the version set; main
// calls it with the build version string.
func GetRootCommand(v string) *cobra.Command {
	rootCmd.Version = v
	return rootCmd
}

func init() {
	rootCmd.Flags().BoolVarP(&extendConversation, "extend-conversation", "e", false, "extend the previous conversation instead of starting a new one")
	rootCmd.Flags().BoolVarP(&repeatInput, "repeat-input", "r", false, "repeat the input before the output, useful to extend instead of replacing")
	rootCmd.Flags().StringVarP(&conversationName, "name", "n", "", "conversation name")
	rootCmd.Flags().StringVar(&apiFlag, "api", "", "override which api to hit")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "override which model (of the api) to use")
	rootCmd.Flags().Float64VarP(&temperatureFlag, "temperature", "t", 0, "higher temperature means answers further from the average")
	rootCmd.Flags().IntVarP(&charLimitFlag, "char-limit", "l", 0, "max number of chars to send, asks for approval above it, 0 = no limit")
	rootCmd.Flags().StringArrayVarP(&contextPatterns, "context", "c", nil, "glob patterns whose file contents are added as context")
	rootCmd.Flags().BoolVar(&prettyFlag, "pretty", false, "render the reply as markdown when stdout is a terminal")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	viper.SetEnvPrefix("AICAT")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("pretty", rootCmd.Flags().Lookup("pretty"))
}

func runRoot(cmd *cobra.Command, args []string) error {
	if os.Getenv(selfTestEnvVar) == "1" {
		return runSelfTest(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	logging.Setup(os.Stderr, viper.GetBool("debug"))

	interactive := isInteractive()

	configDir, err := config.Dir()
	if err != nil {
		return err
	}
	if err := config.EnsureFiles(configDir, interactive); err != nil {
		return fmt.Errorf("generating config files: %w", err)
	}

	if conversationName != "" {
		if err := chat.ValidConversationName(conversationName); err != nil {
			return err
		}
	}

	prompt, freeText, err := resolvePrompt(configDir, args)
	if err != nil {
		return err
	}

	input := ""
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		piped, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		input = string(piped)
	}
	// with nothing piped in, the free text is the input itself
	if input == "" {
		input = freeText
		freeText = ""
	}

	params, err := promptParams(cmd)
	if err != nil {
		return err
	}

	customized, err := chat.Customize(prompt, params, freeText)
	if err != nil {
		return err
	}

	apiCfg, err := config.LoadAPIConfig(configDir, customized.API)
	if err != nil {
		return err
	}

	runner := &app.Runner{
		Completer:      provider.NewClient(customized.API, apiCfg),
		DefaultModel:   apiCfg.DefaultModel,
		Output:         os.Stdout,
		ConfirmInput:   os.Stdin,
		ConfirmOutput:  os.Stderr,
		Interactive:    interactive,
		RepeatInput:    repeatInput,
		RenderMarkdown: viper.GetBool("pretty") && term.IsTerminal(int(os.Stdout.Fd())),
	}

	updated, err := runner.Run(cmd.Context(), customized, input)
	if errors.Is(err, app.ErrBudgetDeclined) {
		return nil
	}
	if err != nil {
		config.CheckUsable(configDir)
		return err
	}

	if err := chat.SaveConversation(configDir, updated, conversationName); err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

// resolvePrompt picks the starting prompt and the free-text command
// from the positional arguments.
//
// Without -e the first argument is either a template name (second
// argument becomes the command) or the command itself on top of the
// default template. With -e the saved conversation is reloaded and
// the first argument is always the command.
func resolvePrompt(configDir string, args []string) (chat.Prompt, string, error) {
	if extendConversation {
		if len(args) > 1 {
			return chat.Prompt{}, "", errors.New("cannot provide a template name when extending a conversation, use `aicat -e \"<your prompt>\"`")
		}
		freeText := ""
		if len(args) > 0 {
			freeText = args[0]
		}
		p, found, err := chat.LoadConversation(configDir, conversationName)
		if err != nil {
			return chat.Prompt{}, "", err
		}
		if found {
			return p, freeText, nil
		}
		if conversationName != "" {
			return chat.Prompt{}, "", fmt.Errorf("named conversation does not exist: %s", conversationName)
		}
		// no previous conversation to extend, start from the default
		// template and keep the argument as the command
		p, err = chat.LoadPrompt(configDir, chat.DefaultTemplate)
		return p, freeText, err
	}

	if len(args) == 0 {
		p, err := chat.LoadPrompt(configDir, chat.DefaultTemplate)
		return p, "", err
	}

	prompts, err := chat.LoadPrompts(configDir)
	if err != nil {
		return chat.Prompt{}, "", err
	}
	if p, ok := prompts[args[0]]; ok {
		freeText := ""
		if len(args) > 1 {
			freeText = args[1]
		}
		return p, freeText, nil
	}
	if len(args) > 1 {
		return chat.Prompt{}, "", errors.New("either provide a valid template name then an input, or only an input: `aicat <template> \"<your prompt>\"` or `aicat \"<your prompt>\"`")
	}
	p, ok := prompts[chat.DefaultTemplate]
	if !ok {
		return chat.Prompt{}, "", fmt.Errorf("`%s` prompt template not found in %s", chat.DefaultTemplate, chat.PromptsPath(configDir))
	}
	return p, args[0], nil
}

// promptParams builds the customizer overrides from the flags that
// were actually set, so an untouched flag never clobbers a template
// value.
func promptParams(cmd *cobra.Command) (chat.Params, error) {
	params := chat.Params{Context: contextPatterns}
	if cmd.Flags().Changed("api") {
		api, err := chat.ParseAPI(apiFlag)
		if err != nil {
			return chat.Params{}, err
		}
		params.API = api
	}
	if cmd.Flags().Changed("model") {
		params.Model = modelFlag
	}
	if cmd.Flags().Changed("temperature") {
		t := temperatureFlag
		params.Temperature = &t
	}
	if cmd.Flags().Changed("char-limit") {
		l := charLimitFlag
		params.CharLimit = &l
	}
	return params, nil
}

func isInteractive() bool {
	return os.Getenv(NonInteractiveEnvVar) != "1" && term.IsTerminal(int(os.Stdin.Fd()))
}

// runSelfTest echoes stdin inside a fixed frame; shell-level tests use
// it to exercise the binary without a provider.
func runSelfTest(in io.Reader, out io.Writer) error {
	input, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	_, err = fmt.Fprintf(out, "Hello, World!\n```\n%s\n```\n", input)
	return err
}
