// Package fileops executes batches of moves, renames, and deletes.
//
// Batches run sequentially in item order. The first failure aborts the rest
// of the batch and is reported as a *BatchError naming the item and target;
// completed items are not rolled back. When a move or rename target already
// exists, the executor's ConflictPolicy decides: append a numeric suffix
// (a.jpg becomes a_1.jpg, then a_2.jpg), skip the item, or abort the batch.
package fileops
