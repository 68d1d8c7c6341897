package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ragagent/internal/domain"
)

const previewRunes = 400

var (
	searchTopK  int
	askVerbose  bool
	askNoChunks bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the chunks most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the agent a question",
	Long: `Ask runs the tool-calling agent. It needs the API key named by
llm.api_key_env (OPENAI_API_KEY by default).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var calcCmd = &cobra.Command{
	Use:   "calc <expression>",
	Short: "Evaluate an arithmetic expression with the calculator tool",
	Example: `  ragagent calc "2 ** 10 + sqrt(16)"
  ragagent calc "factorial(20) % 7"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCalc,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "Number of chunks to return (default index.top_k)")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "Print the tool calls the agent made")
	askCmd.Flags().BoolVar(&askNoChunks, "no-chunks", false, "Do not print the top document chunks")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, done, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer done()
	if err := a.LoadIndex(cmd.Context()); err != nil {
		return err
	}
	k := searchTopK
	if k <= 0 {
		k = a.Config.Index.TopK
	}
	res, err := a.Index.Query(cmd.Context(), strings.Join(args, " "), k)
	if err != nil {
		return err
	}
	printChunks(cmd.OutOrStdout(), res)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, done, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer done()
	if err := a.LoadIndex(cmd.Context()); err != nil {
		return err
	}
	question := strings.Join(args, " ")
	res, err := a.Ask(cmd.Context(), question)
	out := cmd.OutOrStdout()
	if askVerbose {
		for _, st := range res.Steps {
			fmt.Fprintf(out, "[%s] %s\n  -> %s\n", st.Tool, st.Input, st.Output)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Output)
	if askNoChunks || !a.Index.Ready() {
		return nil
	}
	chunks, err := a.Index.Query(cmd.Context(), question, a.Config.Index.TopK)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nTop RAG Chunks")
	printChunks(out, chunks)
	return nil
}

func runCalc(cmd *cobra.Command, args []string) error {
	a, done, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer done()
	out, err := a.Calc.Call(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func printChunks(w io.Writer, res []domain.SearchResult) {
	for _, r := range res {
		fmt.Fprintf(w, "Source: %s | Score: %.4f\n", r.Chunk.Source, r.Score)
		text := []rune(r.Chunk.Text)
		if len(text) > previewRunes {
			text = text[:previewRunes]
		}
		fmt.Fprintln(w, string(text))
		fmt.Fprintln(w, "---")
	}
}
