package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/buger/goterm"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

var (
	userInputColor = color.New(color.FgWhite, color.Bold)
	aiOutputColor  = color.New(color.FgCyan)
	noticeColor    = color.New(color.FgHiYellow)
	errorColor     = color.New(color.FgRed)
	titleColor     = color.New(color.FgMagenta, color.Bold)
	separatorColor = color.New(color.FgHiBlack)
	fileColor      = color.New(color.FgGreen)
	promptColor    = color.New(color.FgHiBlue)
)

func width() int {
	if w := goterm.Width(); w > 0 {
		return w
	}
	return 80
}

// Separator printed to cli.
func Separator() {
	separatorColor.Println(strings.Repeat("-", width()))
}

// Title printed to cli.
func Title(text string, args ...any) {
	w := width()
	title := "      " + fmt.Sprintf(text, args...) + "      "
	leftWidth := max((w-len(title))/2, 0)
	separator1 := strings.Repeat("-", leftWidth)
	separator2 := strings.Repeat("-", max(w-len(title)-len(separator1), 0))
	titleColor.Println(separator1 + title + separator2)
}

// UserInput printed to cli.
func UserInput(text string, args ...any) {
	userInputColor.Printf(text, args...)
}

// AIOutput printed to cli. text is printed verbatim.
func AIOutput(text string) {
	aiOutputColor.Print(text)
}

// Notice printed to cli.
func Notice(text string, args ...any) {
	noticeColor.Printf(text, args...)
}

// Error printed to cli.
func Error(text string, args ...any) {
	errorColor.Printf(text, args...)
}

// FileInfo printed to cli.
func FileInfo(text string, args ...any) {
	fileColor.Printf(text, args...)
}

// PromptUser for multi-line input. Ctrl+J submits.
func PromptUser() (string, error) {
	exit := false
	config := &readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		HistoryFile:       filepath.Join(os.TempDir(), "talkzen.history"),
		HistorySearchFold: true,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == '\x0A' { // Ctrl + J
				exit = true
			}
			return r, true
		},
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return "", err
	}
	defer rl.Close()
	var lines []string
	for {
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
		if exit {
			break
		}
		rl.SetPrompt("")
	}
	return strings.Join(lines, "\n"), nil
}

// QueryUser a yes/no question.
func QueryUser(question string) bool {
	surveyQuestion := &survey.Confirm{
		Message: question,
	}
	confirm := false
	survey.AskOne(surveyQuestion, &confirm)
	return confirm
}

// Choose one of options.
func Choose(question string, options []string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Select{Message: question, Options: options}, &answer)
	return answer, err
}

// AskCredentials prompts for an email and a password.
func AskCredentials(defaultEmail string) (string, string, error) {
	answers := struct {
		Email    string `survey:"email"`
		Password string `survey:"password"`
	}{}
	questions := []*survey.Question{
		{
			Name:     "email",
			Prompt:   &survey.Input{Message: "Email", Default: defaultEmail},
			Validate: survey.Required,
		},
		{
			Name:   "password",
			Prompt: &survey.Password{Message: "Password"},
		},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return "", "", err
	}
	return answers.Email, answers.Password, nil
}
