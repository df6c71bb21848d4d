// Package articulated solves the bilateral joints of a tree of rigid bodies
// in linear time.
//
// A Skeleton is built from a root body and a set of joints, finalized into a
// post-order node array, and then factorized each step with InitMassMatrix.
// CalculateJointForce runs a bounded clamp loop over the joint rows: rows
// whose force leaves its limits are clamped, dropped from the tree, and
// handed to a general solver through SolveUnilaterals.
//
// The caller owns every buffer: joint infos, the row buffer and the per-body
// internal forces. The skeleton only reads and writes them.
package articulated
