// Package ragpipe answers questions with retrieval-augmented generation over an
// Azure AI Search index and an OpenAI-compatible chat model.
//
// Every call retrieves grounding documents, ranks and deduplicates them, renders
// a prompt and asks the model. Each run is recorded as one trace with a span per
// stage.
//
//	client, err := ragpipe.New(
//	    ragpipe.WithSearch("https://my-search.search.windows.net", key, "docs"),
//	    ragpipe.WithLLM(os.Getenv("OPENAI_API_KEY"), "gpt-4-turbo"),
//	)
//	if err != nil { ... }
//	defer client.Close(ctx)
//
//	ans, err := client.Ask(ctx, "What is the capital of France?")
//	fmt.Println(ans.Response, ans.TraceID)
//
// AskAndEvaluate additionally scores the answer for relevance, faithfulness and
// answer quality and returns the weighted overall score.
package ragpipe
