/*
Package value implements Longtable's tagged Value union (C1) and the three
persistent container kinds built on top of it (C2): an ordered sequence
("Vector"), a unique unordered collection ("Set"), and a Value-to-Value
mapping ("Map").

Every Value is a small, cheaply-copyable struct. Primitives (nil, bool, int,
float) live inline; collections and closures share their backing storage via
benbjohnson/immutable's persistent B-trees, so cloning a Value holding a
million-element vector is still O(1) — only the root pointer is copied.

Equality and hashing follow one rule throughout this package: two Values that
compare equal always hash equal, and the reverse is never relied upon
(hash collisions are expected and handled). The one subtlety worth reading
before touching this file: IEEE float equality says NaN != NaN, but every NaN
bit pattern must still hash to the same bucket, and +0.0 must equal -0.0.
Get this wrong here and every cache built on top of it (derived components,
content hashing, refraction keys) is silently corrupted.
*/
package value
