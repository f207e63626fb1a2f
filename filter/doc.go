// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package filter narrows a long document down to the passages closest to
// a query.
//
// A document is split into sentence-bounded chunks, every chunk and the
// query are embedded with the same ai.Embedder, and the k chunks nearest to
// the query by squared Euclidean distance are returned in ascending order.
//
// # Usage
//
//	f, err := filter.NewFilter(provider.Embedder())
//	res := f.Filter(ctx, article, "interest rates", 3)
//	if res.Success {
//	    passages := res.Result.([]core.RelevantPassage)
//	}
//
// Documents shorter than the chunker's minimum length produce no chunks and
// therefore an empty, successful result.
//
// # Index
//
// Search goes through the Index interface. FlatL2 compares the query with
// every stored vector, which is exact and fast enough for the tens to low
// hundreds of chunks a single article produces. A different index can be
// plugged in with WithIndexFactory.
package filter
