// Package client sends requests built with the request package through
// a chain of delegating handlers.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options. Handler
// options install their handler in the order given:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithRequestID(),
//		client.WithTokenProvider(provider),
//		client.WithAPIVersion("2024-01-01"),
//	)
//
// # Making Requests
//
// Send a builder directly, or materialize it and let [Client.Do] check
// the status and decode JSON:
//
//	b := request.FromURL(ctx, urlbuilder.Parse("https://api.example.com/v1/resource"))
//	resp, err := c.Send(b)
//
//	req, err := b.Request()
//	err = c.Do(req, http.StatusOK, client.WithDestination(&result))
//
// # Files
//
// [Client.File] returns the response as a [response.FileResponse];
// [Client.Download] streams it to disk with optional checksum
// verification and progress reporting:
//
//	err = c.Download(req, http.StatusOK, "/tmp/file.bin",
//		response.WithChecksum(sha256.New(), expectedHex),
//		response.WithProgress(),
//	)
//
// Several downloads can run concurrently through a [Batch]:
//
//	b := c.Batch(4)
//	b.Download(req1, http.StatusOK, "/tmp/a.bin")
//	b.Download(req2, http.StatusOK, "/tmp/b.bin")
//	err = b.Wait()
package client
