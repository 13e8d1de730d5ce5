// Package minimax streams chat completions from the MiniMax chatcompletion API.
//
// A Client decodes the host's flattened prompt, posts it to the vendor endpoint
// and returns a Stream. The Stream is pulled frame by frame; every frame carries
// the full text generated so far rather than a delta:
//
//	stream, err := client.Stream(ctx, prompt, params)
//	if err != nil {
//		return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//		fmt.Println(stream.Frame().Text)
//	}
//	return stream.Err()
package minimax
