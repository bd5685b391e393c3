/*
Package ngram builds character-level n-gram frequency models from a corpus of
documents and generates synthetic text by weighted random sampling from them.

Models are built per depth level (the n-gram length) in parallel: every
document is counted independently and the local counts are merged with a
commutative sum. Each level's model is persisted on its own through a Store.
Generation later loads one level, indexes its keys in sorted order and walks
it one grapheme cluster at a time, conditioning every draw on the last
level-1 clusters of the output.
*/
package ngram
