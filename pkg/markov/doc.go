/*
Package markov implements an in-memory, order-N Markov chain over string tokens.

A Model records, for every window of Order consecutive tokens seen during
training, the ordered list of tokens that followed it. Duplicates are kept, so
the list doubles as the frequency distribution: sampling a uniformly random
element of the list is frequency-weighted sampling over the distinct tokens.

Training is append-only and may be repeated over any number of corpora.
Generation is autoregressive: every new token is sampled from the context
formed by the most recent Order tokens of the sequence being built, including
tokens produced earlier in the same call.

A Model is not safe for concurrent use while it is being trained. Wrap it in
a SyncModel when training and generation need to overlap.
*/
package markov
